package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tradeledger/types"
)

func (db *Database) GetPosition(ctx context.Context, portfolioID, symbol string) (*types.Position, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, portfolio_id, symbol, quantity, avg_cost, current_price,
		       market_value, unrealized_pnl, realized_pnl, created_at, updated_at
		FROM positions WHERE portfolio_id = $1 AND symbol = $2`, portfolioID, symbol)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("position %s %w", symbol, ErrNotFound)
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

func (db *Database) ListPositions(ctx context.Context, portfolioID string) ([]types.Position, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, portfolio_id, symbol, quantity, avg_cost, current_price,
		       market_value, unrealized_pnl, realized_pnl, created_at, updated_at
		FROM positions WHERE portfolio_id = $1
		ORDER BY symbol ASC`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	out := make([]types.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return out, nil
}

func scanPosition(row pgx.Row) (*types.Position, error) {
	var p types.Position
	err := row.Scan(&p.ID, &p.PortfolioID, &p.Symbol, &p.Quantity, &p.AvgCost, &p.CurrentPrice,
		&p.MarketValue, &p.UnrealizedPnL, &p.RealizedPnL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
