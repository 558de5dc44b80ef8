package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tradeledger/types"
)

func (db *Database) ListPortfolios(ctx context.Context, profileID string) ([]types.Portfolio, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, profile_id, name, cash_balance, created_at, updated_at
		FROM portfolios WHERE profile_id = $1
		ORDER BY created_at ASC, id ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query portfolios: %w", err)
	}
	defer rows.Close()

	out := make([]types.Portfolio, 0)
	for rows.Next() {
		var p types.Portfolio
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.Name, &p.CashBalance, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolios: %w", err)
	}
	return out, nil
}

func (db *Database) GetPortfolio(ctx context.Context, profileID, portfolioID string) (*types.Portfolio, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, profile_id, name, cash_balance, created_at, updated_at
		FROM portfolios WHERE id = $1 AND profile_id = $2`, portfolioID, profileID)

	var p types.Portfolio
	err := row.Scan(&p.ID, &p.ProfileID, &p.Name, &p.CashBalance, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("portfolio %s %w", portfolioID, ErrNotFound)
		}
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	return &p, nil
}

func (db *Database) CreatePortfolio(ctx context.Context, portfolio *types.Portfolio) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO portfolios (id, profile_id, name, cash_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		portfolio.ID, portfolio.ProfileID, portfolio.Name, portfolio.CashBalance,
		portfolio.CreatedAt, portfolio.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}
