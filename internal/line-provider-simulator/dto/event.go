package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event é o formato servido em GET /event/{id} e GET /events
type Event struct {
	ID          string          `json:"id"`
	Coefficient decimal.Decimal `json:"coefficient"`
	Deadline    time.Time       `json:"deadline"`
	Status      string          `json:"status"` // pending | win | lose
}

// UpsertEventRequest é o corpo de PUT /event/{id}; campos ausentes mantêm o valor atual
type UpsertEventRequest struct {
	Coefficient *decimal.Decimal `json:"coefficient,omitempty"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
	Status      *string          `json:"status,omitempty"`
}
