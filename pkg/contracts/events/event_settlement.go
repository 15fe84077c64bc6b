package events

// EventSettlement é a notificação publicada pelo line provider quando um evento termina.
// Entrega at-least-once: o consumidor precisa tolerar duplicatas.
type EventSettlement struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"` // "win" | "lose"
}
