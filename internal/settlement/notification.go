package settlement

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

var ErrMalformedNotification = errors.New("malformed settlement notification")

// Notification é a notificação já validada: event_id presente e status conhecido
type Notification struct {
	EventID string
	Status  repo.Status
}

// Decode valida o corpo {"event_id": "...", "status": "win"|"lose"|"pending"}
func Decode(body []byte) (Notification, error) {
	var raw events.EventSettlement
	if err := json.Unmarshal(body, &raw); err != nil {
		return Notification{}, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}

	eventID := strings.TrimSpace(raw.EventID)
	if eventID == "" {
		return Notification{}, fmt.Errorf("%w: empty event_id", ErrMalformedNotification)
	}
	st, err := repo.ParseStatus(raw.Status)
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}
	return Notification{EventID: eventID, Status: st}, nil
}
