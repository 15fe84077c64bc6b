package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Dial abre uma conexão AMQP com heartbeat, como nos consumidores de feed.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return conn, nil
}

// DeclareDurableQueue declara a fila durável (sobrevive a restart do broker).
// Produtor e consumidor declaram com os mesmos argumentos.
func DeclareDurableQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}

// Publisher publica mensagens JSON persistentes numa fila via default exchange.
type Publisher struct {
	ch    *amqp.Channel
	queue string
}

func NewPublisher(conn *amqp.Connection, queue string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := DeclareDurableQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch, queue: queue}, nil
}

// PublishJSON envia o payload; streadway/amqp não aceita contexto,
// então só checamos cancelamento antes do envio.
func (p *Publisher) PublishJSON(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.ch.Publish(
		"",      // default exchange
		p.queue, // routing key = nome da fila
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error { return p.ch.Close() }
