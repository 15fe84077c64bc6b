package settlement

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

// RedisBroadcaster publica BetSettled no canal Pub/Sub lido pelo /ws
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) PublishSettled(ctx context.Context, s events.BetSettled) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
