package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the holding for one (portfolio, symbol) pair. Quantity is
// signed, positive for long. MarketValue and UnrealizedPnL are derived and
// recomputed on every fill and on every mark; they never go stale relative to
// CurrentPrice.
type Position struct {
	ID            string          `json:"id"`
	PortfolioID   string          `json:"portfolio_id"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Closed reports whether the position is flat. Closed positions are kept on
// record and may reopen on a later fill.
func (p *Position) Closed() bool {
	return p.Quantity.IsZero()
}

// Mark reprices the position and recomputes the derived fields.
func (p *Position) Mark(price decimal.Decimal) {
	p.CurrentPrice = price
	p.MarketValue = p.Quantity.Mul(price)
	p.UnrealizedPnL = price.Sub(p.AvgCost).Mul(p.Quantity)
}
