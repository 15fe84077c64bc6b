package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal Pub/Sub de liquidações e repassa ao Hub.
// A goroutine termina quando ctx é cancelado.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var s events.BetSettled
				if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(s)
			}
		}
	}()
}
