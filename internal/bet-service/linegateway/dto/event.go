package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event é o snapshot de evento do line provider.
// Só id, deadline e status são interpretados; o JSON original é preservado em Raw.
type Event struct {
	ID       string   `json:"id"`
	Deadline Deadline `json:"deadline"`
	Status   string   `json:"status"`

	Raw json.RawMessage `json:"-"`
}

const statusOpen = "pending"

// Open indica se o evento ainda aceita apostas em now
func (e Event) Open(now time.Time) bool {
	return e.Deadline.After(now) && strings.EqualFold(e.Status, statusOpen)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = Event(p)
	e.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON devolve o JSON original do line provider quando disponível
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type plain Event
	return json.Marshal(plain(e))
}

// Deadline aceita RFC3339 ou ISO-8601 sem fuso (interpretado no horário local),
// com "T" ou espaço como separador.
type Deadline struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func ParseDeadline(s string) (Deadline, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Deadline{t}, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Deadline{t}, nil
		}
	}
	return Deadline{}, fmt.Errorf("invalid deadline %q", s)
}

func (d *Deadline) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDeadline(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.RFC3339Nano))
}
