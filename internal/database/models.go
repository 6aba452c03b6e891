package database

import "time"

// Trade status values. OPEN transitions to WON, LOST, or KILLED_BY_TIME;
// FAILED is terminal and set at creation when the exchange rejects the order.
const (
	StatusOpen         = "OPEN"
	StatusWon          = "WON"
	StatusLost         = "LOST"
	StatusKilledByTime = "KILLED_BY_TIME"
	StatusFailed       = "FAILED"
)

// Trade represents one attempted execution, persisted for audit regardless
// of outcome.
type Trade struct {
	ID              int64     `json:"id"`
	Symbol          string    `json:"symbol"`
	Action          string    `json:"action"` // LONG or SHORT
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	PositionSize    float64   `json:"position_size"`
	Status          string    `json:"status"`
	PnLR            float64   `json:"pnl_r"`
	ExchangeOrderID *string   `json:"exchange_order_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DailyState is the per-UTC-day risk counter row. It is created lazily on
// first access, mutated only through the risk controller, and never deleted.
type DailyState struct {
	DateID           string    `json:"date_id"` // e.g. 2026-02-15
	CurrentPnLR      float64   `json:"current_pnl_r"`
	KillswitchActive bool      `json:"killswitch_active"`
	UpdatedAt        time.Time `json:"updated_at"`
}
