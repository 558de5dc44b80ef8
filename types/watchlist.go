package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Watchlist is purely descriptive display state. Symbol order reflects
// display preference; duplicates carry no meaning.
type Watchlist struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Name      string    `json:"name"`
	Symbols   []string  `json:"symbols"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AlertCondition string

const (
	AlertAbove AlertCondition = "above"
	AlertBelow AlertCondition = "below"
)

// Alert is a price trigger description. Evaluating it against live prices is
// the job of an external monitor, not this core.
type Alert struct {
	ID          string          `json:"id"`
	ProfileID   string          `json:"profile_id"`
	Symbol      string          `json:"symbol"`
	Condition   AlertCondition  `json:"condition"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Active      bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}
