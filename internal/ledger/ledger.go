package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/internal/repository"
	"tradeledger/types"
)

var (
	ErrUnknownSide        = errors.New("unknown trade side")
	ErrInvalidTradeParams = errors.New("trade quantity and price must be positive")
	ErrInvalidAlertParams = errors.New("alert condition must be above or below and target price positive")
	ErrInsufficientFunds  = errors.New("insufficient cash balance for buy")
	ErrInsufficientShares = errors.New("insufficient held quantity for sell")
)

// QuoteSource supplies the latest observed market price per symbol. Quotes
// are already-resolved values; the ledger never fetches over the network.
type QuoteSource interface {
	GetQuote(symbol string) (decimal.Decimal, bool)
}

type Config struct {
	StartingCash     decimal.Decimal
	PortfolioName    string
	WatchlistName    string
	WatchlistSymbols []string
	TradeLogLimit    int
}

func DefaultConfig() Config {
	return Config{
		StartingCash:     decimal.NewFromInt(10000),
		PortfolioName:    "Main Portfolio",
		WatchlistName:    "My Watchlist",
		WatchlistSymbols: []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA"},
		TradeLogLimit:    50,
	}
}

// Ledger owns the accounting rules: it turns trade instructions into a
// consistent trade log, position set and cash balance per portfolio. All
// mutations to one portfolio are serialized; portfolios are independent.
type Ledger struct {
	store  repository.Store
	quotes QuoteSource
	cfg    Config
	locks  keyedMutex
}

func New(store repository.Store, quotes QuoteSource, cfg Config) *Ledger {
	if cfg.TradeLogLimit <= 0 {
		cfg.TradeLogLimit = DefaultConfig().TradeLogLimit
	}
	return &Ledger{store: store, quotes: quotes, cfg: cfg}
}

// TradeInstruction is one buy or sell to execute. An empty PortfolioID means
// the profile's default portfolio.
type TradeInstruction struct {
	PortfolioID string
	Symbol      string
	Side        types.Side
	Quantity    decimal.Decimal
	Price       decimal.Decimal
}

// FillResult is what a caller gets back from one executed trade.
type FillResult struct {
	Trade    *types.Trade    `json:"trade"`
	Position *types.Position `json:"position"`
	Realized decimal.Decimal `json:"realized_pnl"`
}

// ExecuteTrade validates the instruction, records it in the trade log as a
// synchronous fill and applies it to the position, all under the portfolio's
// lock and as one atomic store write. Nothing is mutated on a validation or
// precondition failure.
func (l *Ledger) ExecuteTrade(ctx context.Context, profile *types.Profile, ins TradeInstruction) (*FillResult, error) {
	symbol := normalizeSymbol(ins.Symbol)
	if symbol == "" || !ins.Quantity.IsPositive() || !ins.Price.IsPositive() {
		return nil, ErrInvalidTradeParams
	}
	if ins.Side != types.SideBuy && ins.Side != types.SideSell {
		return nil, ErrUnknownSide
	}

	portfolio, err := l.targetPortfolio(ctx, profile, ins.PortfolioID)
	if err != nil {
		return nil, err
	}

	unlock := l.locks.lock(portfolio.ID)
	defer unlock()

	// Re-read under the lock; cash may have moved since the lookup.
	portfolio, err = l.store.GetPortfolio(ctx, profile.ID, portfolio.ID)
	if err != nil {
		return nil, err
	}

	pos, err := l.store.GetPosition(ctx, portfolio.ID, symbol)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	total := ins.Quantity.Mul(ins.Price)
	var cash decimal.Decimal
	switch ins.Side {
	case types.SideBuy:
		if total.GreaterThan(portfolio.CashBalance) {
			return nil, ErrInsufficientFunds
		}
		cash = portfolio.CashBalance.Sub(total)
	case types.SideSell:
		if pos == nil || pos.Quantity.LessThan(ins.Quantity) {
			return nil, ErrInsufficientShares
		}
		cash = portfolio.CashBalance.Add(total)
	}

	now := time.Now().UTC()
	if pos == nil {
		pos = &types.Position{
			ID:          uuid.NewString(),
			PortfolioID: portfolio.ID,
			Symbol:      symbol,
			CreatedAt:   now,
		}
	}

	markPrice := ins.Price
	if l.quotes != nil {
		if quote, ok := l.quotes.GetQuote(symbol); ok {
			markPrice = quote
		}
	}

	realized, err := applyFill(pos, ins.Side, ins.Quantity, ins.Price, markPrice, now)
	if err != nil {
		return nil, err
	}

	trade := &types.Trade{
		ID:          uuid.NewString(),
		PortfolioID: portfolio.ID,
		Symbol:      symbol,
		Side:        ins.Side,
		Quantity:    ins.Quantity,
		Price:       ins.Price,
		TotalAmount: total,
		Status:      types.TradeStatusFilled,
		ExecutedAt:  &now,
		CreatedAt:   now,
	}

	if err := l.store.ApplyFill(ctx, trade, pos, cash); err != nil {
		return nil, fmt.Errorf("apply fill: %w", err)
	}
	return &FillResult{Trade: trade, Position: pos, Realized: realized}, nil
}

// EnsureDefaultPortfolio returns the profile's first portfolio, creating one
// with the configured starting cash on first access.
func (l *Ledger) EnsureDefaultPortfolio(ctx context.Context, profile *types.Profile) (*types.Portfolio, error) {
	unlock := l.locks.lock("portfolio-init:" + profile.ID)
	defer unlock()

	portfolios, err := l.store.ListPortfolios(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	if len(portfolios) > 0 {
		return &portfolios[0], nil
	}

	now := time.Now().UTC()
	portfolio := &types.Portfolio{
		ID:          uuid.NewString(),
		ProfileID:   profile.ID,
		Name:        l.cfg.PortfolioName,
		CashBalance: l.cfg.StartingCash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.CreatePortfolio(ctx, portfolio); err != nil {
		return nil, err
	}
	return portfolio, nil
}

func (l *Ledger) GetPortfolio(ctx context.Context, profile *types.Profile, portfolioID string) (*types.Portfolio, error) {
	return l.store.GetPortfolio(ctx, profile.ID, portfolioID)
}

func (l *Ledger) ListPortfolios(ctx context.Context, profile *types.Profile) ([]types.Portfolio, error) {
	return l.store.ListPortfolios(ctx, profile.ID)
}

// ListPositions returns every position held in the portfolio, one per
// symbol, including closed ones.
func (l *Ledger) ListPositions(ctx context.Context, profile *types.Profile, portfolioID string) ([]types.Position, error) {
	portfolio, err := l.targetPortfolio(ctx, profile, portfolioID)
	if err != nil {
		return nil, err
	}
	return l.store.ListPositions(ctx, portfolio.ID)
}

// ListTrades returns the newest trades first. limit <= 0 falls back to the
// configured default.
func (l *Ledger) ListTrades(ctx context.Context, profile *types.Profile, portfolioID string, limit int) ([]types.Trade, error) {
	portfolio, err := l.targetPortfolio(ctx, profile, portfolioID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = l.cfg.TradeLogLimit
	}
	return l.store.ListTrades(ctx, portfolio.ID, limit)
}

// Snapshot marks every position at the latest quote and derives the
// portfolio totals. Total value is cash plus summed market value, computed
// here on every read rather than stored.
func (l *Ledger) Snapshot(ctx context.Context, profile *types.Profile, portfolioID string) (*types.PortfolioSnapshot, error) {
	portfolio, err := l.targetPortfolio(ctx, profile, portfolioID)
	if err != nil {
		return nil, err
	}
	positions, err := l.store.ListPositions(ctx, portfolio.ID)
	if err != nil {
		return nil, err
	}

	snap := &types.PortfolioSnapshot{
		PortfolioID:   portfolio.ID,
		Name:          portfolio.Name,
		CashBalance:   portfolio.CashBalance,
		MarketValue:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		Positions:     positions,
		UpdatedAt:     time.Now().UTC(),
	}
	for i := range snap.Positions {
		p := &snap.Positions[i]
		if l.quotes != nil {
			if quote, ok := l.quotes.GetQuote(p.Symbol); ok {
				p.Mark(quote)
			}
		}
		snap.MarketValue = snap.MarketValue.Add(p.MarketValue)
		snap.UnrealizedPnL = snap.UnrealizedPnL.Add(p.UnrealizedPnL)
		snap.RealizedPnL = snap.RealizedPnL.Add(p.RealizedPnL)
	}
	snap.TotalValue = snap.CashBalance.Add(snap.MarketValue)
	return snap, nil
}

// EnsureDefaultWatchlist returns the profile's first watchlist, seeding it
// with the configured default symbols on first access.
func (l *Ledger) EnsureDefaultWatchlist(ctx context.Context, profile *types.Profile) (*types.Watchlist, error) {
	unlock := l.locks.lock("watchlist-init:" + profile.ID)
	defer unlock()

	watchlists, err := l.store.ListWatchlists(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	if len(watchlists) > 0 {
		return &watchlists[0], nil
	}

	now := time.Now().UTC()
	watchlist := &types.Watchlist{
		ID:        uuid.NewString(),
		ProfileID: profile.ID,
		Name:      l.cfg.WatchlistName,
		Symbols:   append([]string(nil), l.cfg.WatchlistSymbols...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.CreateWatchlist(ctx, watchlist); err != nil {
		return nil, err
	}
	return watchlist, nil
}

// UpdateWatchlistSymbols replaces a watchlist's symbols, preserving the
// caller's order.
func (l *Ledger) UpdateWatchlistSymbols(ctx context.Context, profile *types.Profile, watchlistID string, symbols []string) error {
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if n := normalizeSymbol(s); n != "" {
			normalized = append(normalized, n)
		}
	}
	return l.store.UpdateWatchlistSymbols(ctx, profile.ID, watchlistID, normalized)
}

// CreateAlert registers a price trigger, always active. Evaluating triggers
// against live prices belongs to an external monitor.
func (l *Ledger) CreateAlert(ctx context.Context, profile *types.Profile, symbol string, condition types.AlertCondition, targetPrice decimal.Decimal) (*types.Alert, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" || !targetPrice.IsPositive() {
		return nil, ErrInvalidAlertParams
	}
	if condition != types.AlertAbove && condition != types.AlertBelow {
		return nil, ErrInvalidAlertParams
	}

	alert := &types.Alert{
		ID:          uuid.NewString(),
		ProfileID:   profile.ID,
		Symbol:      symbol,
		Condition:   condition,
		TargetPrice: targetPrice,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.store.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (l *Ledger) ListActiveAlerts(ctx context.Context, profile *types.Profile) ([]types.Alert, error) {
	return l.store.ListActiveAlerts(ctx, profile.ID)
}

func (l *Ledger) SetAlertActive(ctx context.Context, profile *types.Profile, alertID string, active bool) error {
	return l.store.SetAlertActive(ctx, profile.ID, alertID, active)
}

func (l *Ledger) targetPortfolio(ctx context.Context, profile *types.Profile, portfolioID string) (*types.Portfolio, error) {
	if portfolioID == "" {
		return l.EnsureDefaultPortfolio(ctx, profile)
	}
	return l.store.GetPortfolio(ctx, profile.ID, portfolioID)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
