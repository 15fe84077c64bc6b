package ws

import "github.com/rovshen99/bet-maker/pkg/contracts/events"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
type ClientMsg struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"` // requerido em subscribe/unsubscribe
}

// SettlementUpdate é o push enviado aos inscritos de um event_id
type SettlementUpdate struct {
	Type    string            `json:"type"` // sempre "bet_settled"
	Payload events.BetSettled `json:"payload"`
}
