package repository

import (
	"context"
	"fmt"

	"tradeledger/types"
)

func (db *Database) ListTrades(ctx context.Context, portfolioID string, limit int) ([]types.Trade, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, portfolio_id, symbol, side, quantity, price, total_amount,
		       status, executed_at, created_at
		FROM trades WHERE portfolio_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	out := make([]types.Trade, 0)
	for rows.Next() {
		var t types.Trade
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.Symbol, &t.Side, &t.Quantity, &t.Price,
			&t.TotalAmount, &t.Status, &t.ExecutedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return out, nil
}
