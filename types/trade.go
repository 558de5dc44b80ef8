package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusFilled    TradeStatus = "filled"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// Trade is one executed instruction in the append-only trade log. Once
// written only Status (and ExecutedAt, when the status becomes filled) may
// change; trades are never deleted.
type Trade struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      TradeStatus     `json:"status"`
	ExecutedAt  *time.Time      `json:"executed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
