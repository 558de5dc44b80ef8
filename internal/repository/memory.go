package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"tradeledger/types"
)

// Memory is an in-process Store. All methods copy on the way in and out so
// callers never share state with the store.
type Memory struct {
	mu         sync.RWMutex
	profiles   []types.Profile
	portfolios []types.Portfolio
	positions  []types.Position
	trades     []types.Trade
	watchlists []types.Watchlist
	alerts     []types.Alert
	tradeSeq   map[string]int
	seq        int
}

func NewMemory() *Memory {
	return &Memory{tradeSeq: make(map[string]int)}
}

func (m *Memory) GetProfileByExternalID(_ context.Context, externalID string) (*types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.profiles {
		if m.profiles[i].ExternalID == externalID {
			p := m.profiles[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateProfile(_ context.Context, profile *types.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append(m.profiles, *profile)
	return nil
}

func (m *Memory) UpdateProfile(_ context.Context, profile *types.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.profiles {
		if m.profiles[i].ID == profile.ID {
			m.profiles[i] = *profile
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListPortfolios(_ context.Context, profileID string) ([]types.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Portfolio, 0)
	for i := range m.portfolios {
		if m.portfolios[i].ProfileID == profileID {
			out = append(out, m.portfolios[i])
		}
	}
	return out, nil
}

func (m *Memory) GetPortfolio(_ context.Context, profileID, portfolioID string) (*types.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.portfolios {
		if m.portfolios[i].ID == portfolioID && m.portfolios[i].ProfileID == profileID {
			p := m.portfolios[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreatePortfolio(_ context.Context, portfolio *types.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolios = append(m.portfolios, *portfolio)
	return nil
}

func (m *Memory) GetPosition(_ context.Context, portfolioID, symbol string) (*types.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.positions {
		if m.positions[i].PortfolioID == portfolioID && m.positions[i].Symbol == symbol {
			p := m.positions[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPositions(_ context.Context, portfolioID string) ([]types.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Position, 0)
	for i := range m.positions {
		if m.positions[i].PortfolioID == portfolioID {
			out = append(out, m.positions[i])
		}
	}
	return out, nil
}

func (m *Memory) ListTrades(_ context.Context, portfolioID string, limit int) ([]types.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Trade, 0)
	for i := range m.trades {
		if m.trades[i].PortfolioID == portfolioID {
			out = append(out, m.trades[i])
		}
	}
	// Newest first, insertion order breaking creation-time ties.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return m.tradeSeq[out[i].ID] > m.tradeSeq[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListWatchlists(_ context.Context, profileID string) ([]types.Watchlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Watchlist, 0)
	for i := range m.watchlists {
		if m.watchlists[i].ProfileID == profileID {
			w := m.watchlists[i]
			w.Symbols = append([]string(nil), w.Symbols...)
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *Memory) CreateWatchlist(_ context.Context, watchlist *types.Watchlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := *watchlist
	w.Symbols = append([]string(nil), watchlist.Symbols...)
	m.watchlists = append(m.watchlists, w)
	return nil
}

func (m *Memory) UpdateWatchlistSymbols(_ context.Context, profileID, watchlistID string, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.watchlists {
		if m.watchlists[i].ID == watchlistID && m.watchlists[i].ProfileID == profileID {
			m.watchlists[i].Symbols = append([]string(nil), symbols...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) CreateAlert(_ context.Context, alert *types.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *Memory) ListActiveAlerts(_ context.Context, profileID string) ([]types.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Alert, 0)
	for i := range m.alerts {
		if m.alerts[i].ProfileID == profileID && m.alerts[i].Active {
			out = append(out, m.alerts[i])
		}
	}
	return out, nil
}

func (m *Memory) SetAlertActive(_ context.Context, profileID, alertID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == alertID && m.alerts[i].ProfileID == profileID {
			m.alerts[i].Active = active
			return nil
		}
	}
	return ErrNotFound
}

// ApplyFill commits the trade, the position upsert and the new cash balance
// under one lock acquisition, so readers see all of it or none of it.
func (m *Memory) ApplyFill(_ context.Context, trade *types.Trade, position *types.Position, cashBalance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for i := range m.portfolios {
		if m.portfolios[i].ID == trade.PortfolioID {
			m.portfolios[i].CashBalance = cashBalance
			m.portfolios[i].UpdatedAt = trade.CreatedAt
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	m.seq++
	m.tradeSeq[trade.ID] = m.seq
	m.trades = append(m.trades, *trade)

	for i := range m.positions {
		if m.positions[i].PortfolioID == position.PortfolioID && m.positions[i].Symbol == position.Symbol {
			m.positions[i] = *position
			return nil
		}
	}
	m.positions = append(m.positions, *position)
	return nil
}
