package settlement

import "github.com/prometheus/client_golang/prometheus"

// Metrics reúne os contadores do pipeline de liquidação
type Metrics struct {
	Received    prometheus.Counter
	Messages    *prometheus.CounterVec // outcome
	Errors      *prometheus.CounterVec // stage
	BetsUpdated prometheus.Counter
	Reconnects  prometheus.Counter
}

func RegisterMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_messages_received_total",
			Help: "Notificações de resultado recebidas do broker",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_messages_total",
			Help: "Notificações de resultado por desfecho",
		}, []string{"outcome"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_errors_total",
			Help: "Erros do settlement por fase",
		}, []string{"stage"}),
		BetsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_bets_updated_total",
			Help: "Apostas com status atualizado",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_reconnects_total",
			Help: "Reconexões do consumer ao broker",
		}),
	}
	reg.MustRegister(m.Received, m.Messages, m.Errors, m.BetsUpdated, m.Reconnects)
	return m
}

// Attach liga os callbacks do Processor e do Consumer aos contadores
func (m *Metrics) Attach(c *Consumer) {
	p := c.Processor
	p.OnConsumed = m.Received.Inc
	p.OnOutcome = func(o Outcome) { m.Messages.WithLabelValues(o.String()).Inc() }
	p.OnError = func(stage string) { m.Errors.WithLabelValues(stage).Inc() }
	p.OnApplied = func(n int) { m.BetsUpdated.Add(float64(n)) }
	c.OnReconnect = m.Reconnects.Inc
}
