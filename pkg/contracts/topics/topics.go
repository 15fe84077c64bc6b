package topics

const (
	// Fila AMQP durável com o resultado dos eventos (line provider -> bet-maker)
	SettlementsQueue = "events"

	// Kafka
	Settlements = "event_settlements"
	BetPlaced   = "bet_placed"

	// Canal Redis Pub/Sub usado pelo /ws do bet-maker
	BetUpdatesBroadcast = "bet_updates_broadcast"
)
