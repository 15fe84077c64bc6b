package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message é uma entrega do broker ainda não confirmada
type Message struct {
	Body []byte
	Ack  func() error
	// Nack devolve a entrega; requeue=false descarta
	Nack func(requeue bool) error
}

// Source abstrai o broker (AMQP ou Kafka).
// O canal devolvido por Open fecha quando a conexão cai ou ctx é cancelado.
type Source interface {
	Open(ctx context.Context) (<-chan Message, error)
	Close() error
}

// Consumer mantém o Processor ligado a um Source, reconectando com backoff exponencial
type Consumer struct {
	Log       *zap.Logger
	Source    Source
	Processor *Processor

	MinBackoff   time.Duration // default 1s
	MaxBackoff   time.Duration // default 30s
	RequeueDelay time.Duration // pausa após devolver uma entrega; default MinBackoff

	OnReconnect func() // métricas
}

// Run só retorna quando ctx é cancelado; falhas de conexão e de mensagem nunca encerram o loop
func (c *Consumer) Run(ctx context.Context) error {
	minB, maxB := c.backoffs()
	backoff := minB

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.Source.Open(ctx)
		if err != nil {
			c.Log.Warn("settlement source unavailable, retrying",
				zap.Duration("backoff", backoff), zap.Error(err))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = next(backoff, maxB)
			continue
		}

		c.Log.Info("settlement consumer connected")
		backoff = minB
		c.consume(ctx, deliveries)
		_ = c.Source.Close()

		if err := ctx.Err(); err != nil {
			c.Log.Info("settlement consumer stopped")
			return err
		}
		c.Log.Warn("settlement source closed, reconnecting", zap.Duration("backoff", backoff))
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = next(backoff, maxB)
	}
}

// consume processa uma entrega por vez até o canal fechar
func (c *Consumer) consume(ctx context.Context, deliveries <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-deliveries:
			if !ok {
				return
			}
			switch c.Processor.Handle(ctx, m.Body) {
			case OutcomeAck, OutcomeDrop:
				if err := m.Ack(); err != nil {
					c.Log.Warn("ack failed", zap.Error(err))
				}
			case OutcomeRequeue:
				if err := m.Nack(true); err != nil {
					c.Log.Warn("nack failed", zap.Error(err))
				}
				if !sleep(ctx, c.requeueDelay()) {
					return
				}
			}
		}
	}
}

func (c *Consumer) backoffs() (time.Duration, time.Duration) {
	minB, maxB := c.MinBackoff, c.MaxBackoff
	if minB <= 0 {
		minB = time.Second
	}
	if maxB < minB {
		maxB = 30 * time.Second
		if maxB < minB {
			maxB = minB
		}
	}
	return minB, maxB
}

func (c *Consumer) requeueDelay() time.Duration {
	if c.RequeueDelay > 0 {
		return c.RequeueDelay
	}
	minB, _ := c.backoffs()
	return minB
}

func next(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		return max
	}
	return d
}

// sleep devolve false se ctx for cancelado antes do fim da espera
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
