package catalog

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
	"github.com/rovshen99/bet-maker/internal/line-provider-simulator/dto"
)

var (
	ErrNotFound      = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
	ErrAlreadyClosed = errors.New("event already finished")
)

// Catalog guarda os eventos em memória
type Catalog struct {
	mu     sync.RWMutex
	events map[string]dto.Event
}

func New(seed ...dto.Event) *Catalog {
	c := &Catalog{events: make(map[string]dto.Event, len(seed))}
	for _, ev := range seed {
		c.events[ev.ID] = ev
	}
	return c
}

func (c *Catalog) Get(id string) (dto.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[id]
	if !ok {
		return dto.Event{}, ErrNotFound
	}
	return ev, nil
}

// List devolve os eventos ordenados por id
func (c *Catalog) List() []dto.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dto.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Upsert cria ou atualiza o evento. settled é true sempre que a requisição traz um
// status final; repetir o mesmo resultado republica (o consumidor é idempotente).
func (c *Catalog) Upsert(id string, req dto.UpsertEventRequest) (ev dto.Event, settled bool, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dto.Event{}, false, ErrInvalidEvent
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, exists := c.events[id]
	if !exists {
		if req.Deadline == nil {
			return dto.Event{}, false, ErrInvalidEvent
		}
		cur = dto.Event{ID: id, Status: string(repo.StatusPending)}
	}
	prev := repo.Status(cur.Status)

	if req.Coefficient != nil {
		if !req.Coefficient.IsPositive() {
			return dto.Event{}, false, ErrInvalidEvent
		}
		cur.Coefficient = req.Coefficient.Round(2)
	}
	if req.Deadline != nil {
		cur.Deadline = *req.Deadline
	}
	if req.Status != nil {
		st, err := repo.ParseStatus(*req.Status)
		if err != nil {
			return dto.Event{}, false, ErrInvalidEvent
		}
		if exists && prev.Terminal() && st != prev {
			return dto.Event{}, false, ErrAlreadyClosed
		}
		cur.Status = string(st)
	}

	c.events[id] = cur
	settled = req.Status != nil && repo.Status(cur.Status).Terminal()
	return cur, settled, nil
}
