package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rovshen99/bet-maker/internal/bet-service/linegateway/dto"
)

const keyEvents = "line:events"

// EventsCache guarda por poucos segundos a listagem GET /events do line provider.
// Só a listagem é cacheada; a admissão sempre consulta o evento ao vivo.
type EventsCache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *EventsCache { return &EventsCache{R: r, TTL: ttl} }

// Get retorna (eventos, true) em cache hit
func (c *EventsCache) Get(ctx context.Context) ([]dto.Event, bool, error) {
	b, err := c.R.Get(ctx, keyEvents).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var evs []dto.Event
	if err := json.Unmarshal(b, &evs); err != nil {
		return nil, false, err
	}
	return evs, true, nil
}

func (c *EventsCache) Set(ctx context.Context, evs []dto.Event) error {
	b, err := json.Marshal(evs)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyEvents, b, c.TTL).Err()
}
