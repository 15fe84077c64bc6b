package dto

import "github.com/rovshen99/bet-maker/internal/bet-service/repo"

// PlaceBetRequest é o corpo de POST /bet. Um "status" enviado pelo cliente é ignorado.
type PlaceBetRequest struct {
	EventID string      `json:"event_id"`
	Amount  repo.Amount `json:"amount"`
}
