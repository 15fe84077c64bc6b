package publisher

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"

	"github.com/rovshen99/bet-maker/internal/shared/kafka"
	"github.com/rovshen99/bet-maker/internal/shared/rabbit"
	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

// Settlements publica o resultado de um evento para o bet-maker
type Settlements interface {
	PublishSettlement(ctx context.Context, s events.EventSettlement) error
	Close() error
}

// AMQP publica na fila durável de resultados
type AMQP struct {
	conn *amqp.Connection
	pub  *rabbit.Publisher
}

func NewAMQP(url, queue string) (*AMQP, error) {
	conn, err := rabbit.Dial(url)
	if err != nil {
		return nil, err
	}
	pub, err := rabbit.NewPublisher(conn, queue)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &AMQP{conn: conn, pub: pub}, nil
}

func (a *AMQP) PublishSettlement(ctx context.Context, s events.EventSettlement) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return a.pub.PublishJSON(ctx, body)
}

func (a *AMQP) Close() error {
	_ = a.pub.Close()
	return a.conn.Close()
}

// Kafka publica no tópico de resultados com event_id como chave
type Kafka struct {
	w *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: kafka.NewWriter(brokers, topic)}
}

func (k *Kafka) PublishSettlement(ctx context.Context, s events.EventSettlement) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, k.w, s.EventID, body)
}

func (k *Kafka) Close() error { return k.w.Close() }
