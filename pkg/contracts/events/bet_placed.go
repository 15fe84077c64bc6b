package events

// BetPlaced é publicado (best effort) após a aposta ser gravada no ledger.
type BetPlaced struct {
	BetID    string `json:"bet_id"`
	EventID  string `json:"event_id"`
	Amount   string `json:"amount"` // decimal com duas casas, ex: "10.50"
	Status   string `json:"status"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
