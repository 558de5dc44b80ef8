package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID          string          `json:"id"`
	ProfileID   string          `json:"profile_id"`
	Name        string          `json:"name"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PortfolioSnapshot is the read model for one portfolio: positions marked at
// the latest known prices plus totals derived from them. Total value is never
// stored; it is always cash + the summed market value of the positions.
type PortfolioSnapshot struct {
	PortfolioID   string          `json:"portfolio_id"`
	Name          string          `json:"name"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	MarketValue   decimal.Decimal `json:"market_value"`
	TotalValue    decimal.Decimal `json:"total_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	Positions     []Position      `json:"positions"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
