package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"tradeledger/types"
)

// Global error declarations.
var (
	ErrNotFound = errors.New("not found in datasource")
)

type ProfileStore interface {
	GetProfileByExternalID(ctx context.Context, externalID string) (*types.Profile, error)
	CreateProfile(ctx context.Context, profile *types.Profile) error
	UpdateProfile(ctx context.Context, profile *types.Profile) error
}

type PortfolioStore interface {
	// ListPortfolios returns a profile's portfolios oldest first, so the
	// first element is "the first portfolio" callers default to.
	ListPortfolios(ctx context.Context, profileID string) ([]types.Portfolio, error)
	GetPortfolio(ctx context.Context, profileID, portfolioID string) (*types.Portfolio, error)
	CreatePortfolio(ctx context.Context, portfolio *types.Portfolio) error
}

type PositionStore interface {
	GetPosition(ctx context.Context, portfolioID, symbol string) (*types.Position, error)
	ListPositions(ctx context.Context, portfolioID string) ([]types.Position, error)
}

type TradeStore interface {
	// ListTrades returns trades newest first, capped at limit.
	ListTrades(ctx context.Context, portfolioID string, limit int) ([]types.Trade, error)
}

type WatchlistStore interface {
	ListWatchlists(ctx context.Context, profileID string) ([]types.Watchlist, error)
	CreateWatchlist(ctx context.Context, watchlist *types.Watchlist) error
	UpdateWatchlistSymbols(ctx context.Context, profileID, watchlistID string, symbols []string) error
}

type AlertStore interface {
	CreateAlert(ctx context.Context, alert *types.Alert) error
	ListActiveAlerts(ctx context.Context, profileID string) ([]types.Alert, error)
	SetAlertActive(ctx context.Context, profileID, alertID string, active bool) error
}

// FillWriter persists one executed trade together with its position upsert
// and the portfolio's resulting cash balance as a single atomic write. A
// reader never observes the trade without the position update or vice versa.
type FillWriter interface {
	ApplyFill(ctx context.Context, trade *types.Trade, position *types.Position, cashBalance decimal.Decimal) error
}

// Store is the full storage contract the ledger is built against. The
// Postgres implementation backs it with one database; Memory backs it with
// process-local state for tests and demo runs.
type Store interface {
	ProfileStore
	PortfolioStore
	PositionStore
	TradeStore
	WatchlistStore
	AlertStore
	FillWriter
}
