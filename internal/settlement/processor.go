package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

var ErrApplyFailed = errors.New("apply settlement failed")

// Outcome diz ao consumer o que fazer com a entrega
type Outcome int

const (
	OutcomeAck     Outcome = iota // aplicada
	OutcomeDrop                   // malformada ou ledger ilegível: confirma e descarta
	OutcomeRequeue                // storage indisponível: devolve ao broker
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeDrop:
		return "drop"
	case OutcomeRequeue:
		return "requeue"
	default:
		return "unknown"
	}
}

// Broadcaster publica o resultado aplicado para o feed /ws
type Broadcaster interface {
	PublishSettled(ctx context.Context, s events.BetSettled) error
}

// Processor aplica notificações de resultado ao ledger.
// Callbacks de métricas são opcionais.
type Processor struct {
	Log         *zap.Logger
	Store       repo.Store
	Broadcaster Broadcaster // opcional
	Now         func() time.Time

	OnConsumed func()        // métricas: mensagem recebida
	OnOutcome  func(Outcome) // métricas por desfecho
	OnApplied  func(n int)   // métricas: apostas atualizadas
	OnError    func(string)  // métricas por fase: decode | apply | broadcast
}

// Handle processa uma entrega: decode, aplicação e broadcast best effort
func (p *Processor) Handle(ctx context.Context, body []byte) Outcome {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}
	out := p.handle(ctx, body)
	if p.OnOutcome != nil {
		p.OnOutcome(out)
	}
	return out
}

func (p *Processor) handle(ctx context.Context, body []byte) Outcome {
	n, err := Decode(body)
	if err != nil {
		p.Log.Warn("dropping malformed notification", zap.ByteString("body", body), zap.Error(err))
		p.stageError("decode")
		return OutcomeDrop
	}

	ids, err := p.Apply(ctx, n)
	if err != nil {
		p.stageError("apply")
		if errors.Is(err, repo.ErrStorageUnavailable) {
			p.Log.Error("settlement apply failed, requeueing",
				zap.String("event_id", n.EventID), zap.String("status", string(n.Status)), zap.Error(err))
			return OutcomeRequeue
		}
		// registro ilegível não melhora com nova entrega
		p.Log.Error("settlement apply failed, dropping",
			zap.String("event_id", n.EventID), zap.String("status", string(n.Status)), zap.Error(err))
		return OutcomeDrop
	}

	p.Log.Info("settlement applied",
		zap.String("event_id", n.EventID), zap.String("status", string(n.Status)), zap.Int("bets", len(ids)))
	if p.OnApplied != nil {
		p.OnApplied(len(ids))
	}

	p.broadcast(ctx, n, ids)
	return OutcomeAck
}

// Apply grava o status em todas as apostas do evento.
// Idempotente; zero apostas é sucesso. Em conflito vale a última notificação aplicada.
func (p *Processor) Apply(ctx context.Context, n Notification) ([]int64, error) {
	bets, err := p.Store.GetByEvent(ctx, n.EventID)
	if err != nil {
		return nil, fmt.Errorf("%w: load bets of %s: %w", ErrApplyFailed, n.EventID, err)
	}

	ids := make([]int64, 0, len(bets))
	for _, b := range bets {
		err := p.Store.UpdateStatus(ctx, b.ID, n.EventID, n.Status)
		if errors.Is(err, repo.ErrNotFound) {
			// índice apontando para registro inexistente: nada a atualizar
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: update bet %d: %w", ErrApplyFailed, b.ID, err)
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (p *Processor) broadcast(ctx context.Context, n Notification, ids []int64) {
	if p.Broadcaster == nil || len(ids) == 0 {
		return
	}
	s := events.BetSettled{
		EventID: n.EventID,
		Status:  string(n.Status),
		BetIDs:  make([]string, len(ids)),
		Ts:      p.now(),
	}
	for i, id := range ids {
		s.BetIDs[i] = strconv.FormatInt(id, 10)
	}
	if err := p.Broadcaster.PublishSettled(ctx, s); err != nil {
		p.Log.Warn("settlement broadcast failed", zap.String("event_id", n.EventID), zap.Error(err))
		p.stageError("broadcast")
	}
}

func (p *Processor) stageError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func (p *Processor) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now()
}
