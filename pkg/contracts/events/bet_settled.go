package events

import "time"

// BetSettled é emitido pelo settlement consumer depois de aplicar uma notificação.
type BetSettled struct {
	EventID string    `json:"event_id"`
	Status  string    `json:"status"`
	BetIDs  []string  `json:"bet_ids"`
	Ts      time.Time `json:"ts"`
}
