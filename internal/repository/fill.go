package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"tradeledger/types"
)

// ApplyFill writes the trade, upserts the position and sets the portfolio's
// cash balance in one transaction. A crash cannot leave a trade recorded
// without its position update, or the other way round.
func (db *Database) ApplyFill(ctx context.Context, trade *types.Trade, position *types.Position, cashBalance decimal.Decimal) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin fill tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE portfolios SET cash_balance = $2, updated_at = $3
		WHERE id = $1`, trade.PortfolioID, cashBalance, trade.CreatedAt)
	if err != nil {
		return fmt.Errorf("update cash balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("portfolio %s %w", trade.PortfolioID, ErrNotFound)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trades (id, portfolio_id, symbol, side, quantity, price, total_amount,
		                    status, executed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		trade.ID, trade.PortfolioID, trade.Symbol, trade.Side, trade.Quantity, trade.Price,
		trade.TotalAmount, trade.Status, trade.ExecutedAt, trade.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO positions (id, portfolio_id, symbol, quantity, avg_cost, current_price,
		                       market_value, unrealized_pnl, realized_pnl, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (portfolio_id, symbol) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			avg_cost = EXCLUDED.avg_cost,
			current_price = EXCLUDED.current_price,
			market_value = EXCLUDED.market_value,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			realized_pnl = EXCLUDED.realized_pnl,
			updated_at = EXCLUDED.updated_at`,
		position.ID, position.PortfolioID, position.Symbol, position.Quantity, position.AvgCost,
		position.CurrentPrice, position.MarketValue, position.UnrealizedPnL, position.RealizedPnL,
		position.CreatedAt, position.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit fill tx: %w", err)
	}
	return nil
}
