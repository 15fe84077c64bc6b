package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/shared/rabbit"
)

// AMQPSource consome a fila durável de resultados com ack manual e prefetch 1
type AMQPSource struct {
	URL      string
	Queue    string
	Prefetch int
	Log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPSource(url, queue string, log *zap.Logger) *AMQPSource {
	return &AMQPSource{URL: url, Queue: queue, Prefetch: 1, Log: log}
}

func (s *AMQPSource) Open(ctx context.Context) (<-chan Message, error) {
	conn, err := rabbit.Dial(s.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(s.Prefetch, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	if _, err := rabbit.DeclareDurableQueue(ch, s.Queue); err != nil {
		_ = conn.Close()
		return nil, err
	}

	tag := "bet-maker-" + uuid.NewString()
	deliveries, err := ch.Consume(
		s.Queue,
		tag,
		false, // auto-ack desligado
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("consume %s: %w", s.Queue, err)
	}

	s.mu.Lock()
	s.conn, s.ch = conn, ch
	s.mu.Unlock()

	s.Log.Info("amqp consumer started", zap.String("queue", s.Queue), zap.String("tag", tag))

	out := make(chan Message)
	go func() {
		defer close(out)
		for d := range deliveries {
			m := Message{
				Body: d.Body,
				Ack:  func() error { return d.Ack(false) },
				Nack: func(requeue bool) error { return d.Nack(false, requeue) },
			}
			select {
			case out <- m:
			case <-ctx.Done():
				// sem ack: o broker reentrega ao fechar o canal
				return
			}
		}
	}()
	return out, nil
}

// Close fecha canal e conexão; entregas sem ack voltam para a fila
func (s *AMQPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	if s.ch != nil {
		_ = s.ch.Close()
	}
	err := s.conn.Close()
	s.conn, s.ch = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
