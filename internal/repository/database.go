package repository

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the Postgres-backed Store.
type Database struct {
	pool *pgxpool.Pool
}

// NewDatabase creates a new Database instance, verifies connectivity and
// applies the schema.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	db := &Database{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) Close() {
	db.pool.Close()
}

func (db *Database) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS portfolios (
		id UUID PRIMARY KEY,
		profile_id UUID NOT NULL REFERENCES profiles(id),
		name TEXT NOT NULL,
		cash_balance NUMERIC(30,10) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id UUID PRIMARY KEY,
		portfolio_id UUID NOT NULL REFERENCES portfolios(id),
		symbol TEXT NOT NULL,
		quantity NUMERIC(30,10) NOT NULL,
		avg_cost NUMERIC(20,10) NOT NULL,
		current_price NUMERIC(20,10) NOT NULL,
		market_value NUMERIC(30,10) NOT NULL,
		unrealized_pnl NUMERIC(30,10) NOT NULL,
		realized_pnl NUMERIC(30,10) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (portfolio_id, symbol)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id UUID PRIMARY KEY,
		portfolio_id UUID NOT NULL REFERENCES portfolios(id),
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity NUMERIC(30,10) NOT NULL,
		price NUMERIC(20,10) NOT NULL,
		total_amount NUMERIC(30,10) NOT NULL,
		status TEXT NOT NULL,
		executed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS trades_portfolio_created_idx
		ON trades (portfolio_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS watchlists (
		id UUID PRIMARY KEY,
		profile_id UUID NOT NULL REFERENCES profiles(id),
		name TEXT NOT NULL,
		symbols TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY,
		profile_id UUID NOT NULL REFERENCES profiles(id),
		symbol TEXT NOT NULL,
		condition TEXT NOT NULL,
		target_price NUMERIC(20,10) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL
	);
	`
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
