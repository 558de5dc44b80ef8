package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeledger/types"
)

func TestMemoryProfiles(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetProfileByExternalID(ctx, "ext-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	profile := &types.Profile{ID: "p1", ExternalID: "ext-1", Email: "a@example.com"}
	if err := m.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	got, err := m.GetProfileByExternalID(ctx, "ext-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("id = %s, want p1", got.ID)
	}

	// The returned profile is a copy; mutating it must not touch the store.
	got.Email = "mutated@example.com"
	again, err := m.GetProfileByExternalID(ctx, "ext-1")
	if err != nil {
		t.Fatalf("get profile again: %v", err)
	}
	if again.Email != "a@example.com" {
		t.Errorf("email = %s, want a@example.com", again.Email)
	}

	got.Email = "b@example.com"
	if err := m.UpdateProfile(ctx, got); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	updated, err := m.GetProfileByExternalID(ctx, "ext-1")
	if err != nil {
		t.Fatalf("get updated profile: %v", err)
	}
	if updated.Email != "b@example.com" {
		t.Errorf("email = %s, want b@example.com", updated.Email)
	}

	if err := m.UpdateProfile(ctx, &types.Profile{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing profile error = %v, want ErrNotFound", err)
	}
}

func TestMemoryPortfolioScoping(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.CreatePortfolio(ctx, &types.Portfolio{ID: "pf1", ProfileID: "p1", Name: "Main"}); err != nil {
		t.Fatalf("create portfolio: %v", err)
	}
	if err := m.CreatePortfolio(ctx, &types.Portfolio{ID: "pf2", ProfileID: "p2", Name: "Other"}); err != nil {
		t.Fatalf("create portfolio: %v", err)
	}

	// A portfolio is only visible through its owning profile.
	if _, err := m.GetPortfolio(ctx, "p2", "pf1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-profile get error = %v, want ErrNotFound", err)
	}
	got, err := m.GetPortfolio(ctx, "p1", "pf1")
	if err != nil {
		t.Fatalf("get portfolio: %v", err)
	}
	if got.Name != "Main" {
		t.Errorf("name = %s, want Main", got.Name)
	}

	mine, err := m.ListPortfolios(ctx, "p1")
	if err != nil {
		t.Fatalf("list portfolios: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "pf1" {
		t.Errorf("list = %+v, want only pf1", mine)
	}
}

func TestMemoryApplyFill(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.CreatePortfolio(ctx, &types.Portfolio{
		ID:          "pf1",
		ProfileID:   "p1",
		CashBalance: decimal.NewFromInt(10000),
	}); err != nil {
		t.Fatalf("create portfolio: %v", err)
	}

	now := time.Now().UTC()
	trade := &types.Trade{
		ID:          "t1",
		PortfolioID: "pf1",
		Symbol:      "AAPL",
		Side:        types.SideBuy,
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(100),
		TotalAmount: decimal.NewFromInt(1000),
		Status:      types.TradeStatusFilled,
		CreatedAt:   now,
	}
	position := &types.Position{
		ID:          "pos1",
		PortfolioID: "pf1",
		Symbol:      "AAPL",
		Quantity:    decimal.NewFromInt(10),
		AvgCost:     decimal.NewFromInt(100),
	}
	if err := m.ApplyFill(ctx, trade, position, decimal.NewFromInt(9000)); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	portfolio, err := m.GetPortfolio(ctx, "p1", "pf1")
	if err != nil {
		t.Fatalf("get portfolio: %v", err)
	}
	if !portfolio.CashBalance.Equal(decimal.NewFromInt(9000)) {
		t.Errorf("cash = %s, want 9000", portfolio.CashBalance)
	}

	// A second fill on the same symbol upserts the position, never duplicates.
	position.Quantity = decimal.NewFromInt(15)
	trade2 := *trade
	trade2.ID = "t2"
	if err := m.ApplyFill(ctx, &trade2, position, decimal.NewFromInt(8500)); err != nil {
		t.Fatalf("apply second fill: %v", err)
	}
	positions, err := m.ListPositions(ctx, "pf1")
	if err != nil {
		t.Fatalf("list positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if !positions[0].Quantity.Equal(decimal.NewFromInt(15)) {
		t.Errorf("quantity = %s, want 15", positions[0].Quantity)
	}

	if err := m.ApplyFill(ctx, &types.Trade{ID: "t3", PortfolioID: "missing"}, position, decimal.Zero); !errors.Is(err, ErrNotFound) {
		t.Errorf("apply fill to missing portfolio error = %v, want ErrNotFound", err)
	}
}

func TestMemoryListTradesOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.CreatePortfolio(ctx, &types.Portfolio{ID: "pf1", ProfileID: "p1"}); err != nil {
		t.Fatalf("create portfolio: %v", err)
	}

	// Identical timestamps force the insertion-order tie-break.
	now := time.Now().UTC()
	pos := &types.Position{ID: "pos1", PortfolioID: "pf1", Symbol: "AAPL"}
	for _, id := range []string{"t1", "t2", "t3"} {
		trade := &types.Trade{ID: id, PortfolioID: "pf1", Symbol: "AAPL", CreatedAt: now}
		if err := m.ApplyFill(ctx, trade, pos, decimal.Zero); err != nil {
			t.Fatalf("apply fill %s: %v", id, err)
		}
	}

	trades, err := m.ListTrades(ctx, "pf1", 2)
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].ID != "t3" || trades[1].ID != "t2" {
		t.Errorf("order = [%s %s], want [t3 t2]", trades[0].ID, trades[1].ID)
	}
}

func TestMemoryWatchlists(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	symbols := []string{"AAPL", "MSFT"}
	if err := m.CreateWatchlist(ctx, &types.Watchlist{
		ID: "w1", ProfileID: "p1", Name: "My Watchlist", Symbols: symbols,
	}); err != nil {
		t.Fatalf("create watchlist: %v", err)
	}

	// The store keeps its own copy of the symbol slice.
	symbols[0] = "MUTATED"
	lists, err := m.ListWatchlists(ctx, "p1")
	if err != nil {
		t.Fatalf("list watchlists: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 watchlist, got %d", len(lists))
	}
	if lists[0].Symbols[0] != "AAPL" {
		t.Errorf("symbols[0] = %s, want AAPL", lists[0].Symbols[0])
	}

	if err := m.UpdateWatchlistSymbols(ctx, "p1", "w1", []string{"NVDA"}); err != nil {
		t.Fatalf("update watchlist: %v", err)
	}
	lists, err = m.ListWatchlists(ctx, "p1")
	if err != nil {
		t.Fatalf("list watchlists after update: %v", err)
	}
	if len(lists[0].Symbols) != 1 || lists[0].Symbols[0] != "NVDA" {
		t.Errorf("symbols = %v, want [NVDA]", lists[0].Symbols)
	}

	if err := m.UpdateWatchlistSymbols(ctx, "p2", "w1", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-profile update error = %v, want ErrNotFound", err)
	}
}

func TestMemoryAlerts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.CreateAlert(ctx, &types.Alert{ID: "a1", ProfileID: "p1", Symbol: "AAPL", Active: true}); err != nil {
		t.Fatalf("create alert: %v", err)
	}
	if err := m.CreateAlert(ctx, &types.Alert{ID: "a2", ProfileID: "p1", Symbol: "MSFT", Active: false}); err != nil {
		t.Fatalf("create alert: %v", err)
	}
	if err := m.CreateAlert(ctx, &types.Alert{ID: "a3", ProfileID: "p2", Symbol: "TSLA", Active: true}); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	active, err := m.ListActiveAlerts(ctx, "p1")
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(active) != 1 || active[0].ID != "a1" {
		t.Fatalf("active alerts = %+v, want only a1", active)
	}

	if err := m.SetAlertActive(ctx, "p1", "a1", false); err != nil {
		t.Fatalf("deactivate alert: %v", err)
	}
	active, err = m.ListActiveAlerts(ctx, "p1")
	if err != nil {
		t.Fatalf("list alerts after deactivate: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active alerts, got %d", len(active))
	}

	if err := m.SetAlertActive(ctx, "p2", "a1", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-profile alert update error = %v, want ErrNotFound", err)
	}
}
