package repository

import (
	"context"
	"fmt"

	"tradeledger/types"
)

func (db *Database) ListWatchlists(ctx context.Context, profileID string) ([]types.Watchlist, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, profile_id, name, symbols, created_at, updated_at
		FROM watchlists WHERE profile_id = $1
		ORDER BY created_at ASC, id ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query watchlists: %w", err)
	}
	defer rows.Close()

	out := make([]types.Watchlist, 0)
	for rows.Next() {
		var w types.Watchlist
		if err := rows.Scan(&w.ID, &w.ProfileID, &w.Name, &w.Symbols, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlists: %w", err)
	}
	return out, nil
}

func (db *Database) CreateWatchlist(ctx context.Context, watchlist *types.Watchlist) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO watchlists (id, profile_id, name, symbols, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		watchlist.ID, watchlist.ProfileID, watchlist.Name, watchlist.Symbols,
		watchlist.CreatedAt, watchlist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert watchlist: %w", err)
	}
	return nil
}

func (db *Database) UpdateWatchlistSymbols(ctx context.Context, profileID, watchlistID string, symbols []string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE watchlists SET symbols = $3, updated_at = NOW()
		WHERE id = $1 AND profile_id = $2`, watchlistID, profileID, symbols)
	if err != nil {
		return fmt.Errorf("update watchlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("watchlist %s %w", watchlistID, ErrNotFound)
	}
	return nil
}

func (db *Database) CreateAlert(ctx context.Context, alert *types.Alert) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO alerts (id, profile_id, symbol, condition, target_price, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		alert.ID, alert.ProfileID, alert.Symbol, alert.Condition, alert.TargetPrice,
		alert.Active, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (db *Database) ListActiveAlerts(ctx context.Context, profileID string) ([]types.Alert, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, profile_id, symbol, condition, target_price, is_active, created_at
		FROM alerts WHERE profile_id = $1 AND is_active
		ORDER BY created_at ASC, id ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]types.Alert, 0)
	for rows.Next() {
		var a types.Alert
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.Symbol, &a.Condition, &a.TargetPrice, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (db *Database) SetAlertActive(ctx context.Context, profileID, alertID string, active bool) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE alerts SET is_active = $3
		WHERE id = $1 AND profile_id = $2`, alertID, profileID, active)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s %w", alertID, ErrNotFound)
	}
	return nil
}
