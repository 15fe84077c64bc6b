package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
	"github.com/rovshen99/bet-maker/internal/shared/kafka"
	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

// MessageWriter é o pedaço do kafka.Writer que o publisher usa
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica bet_placed com event_id como chave (mesma partição por evento)
type KafkaPublisher struct {
	Writer  MessageWriter
	Log     *zap.Logger
	Timeout time.Duration
	Now     func() time.Time
}

func NewKafkaPublisher(w MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Log: log, Timeout: 5 * time.Second, Now: time.Now}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, b repo.Bet) error {
	e := events.BetPlaced{
		BetID:    strconv.FormatInt(b.ID, 10),
		EventID:  b.EventID,
		Amount:   b.Amount.String(),
		Status:   string(b.Status),
		TsUnixMs: p.Now().UnixMilli(),
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.EventID),
		Value: body,
		Time:  p.Now(),
	})
}

// OnPlaced adapta o publisher ao hook da admissão: roda fora do request e só loga falhas
func (p *KafkaPublisher) OnPlaced(b repo.Bet) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
		defer cancel()
		if err := p.PublishBetPlaced(ctx, b); err != nil {
			p.Log.Warn("publish bet_placed failed", zap.Int64("bet_id", b.ID), zap.Error(err))
		}
	}()
}
