package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/linegateway"
	"github.com/rovshen99/bet-maker/internal/bet-service/linegateway/dto"
	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
)

var (
	ErrInvalidAmount  = errors.New("amount must have two decimal places")
	ErrInvalidEventID = errors.New("event_id is required")
	ErrBettingClosed  = errors.New("betting deadline for this event has passed or event has finished")

	// Reexportados para o handler HTTP classificar sem conhecer os pacotes internos
	ErrEventNotFound       = linegateway.ErrEventNotFound
	ErrUpstreamUnavailable = linegateway.ErrUpstreamUnavailable
	ErrStorageUnavailable  = repo.ErrStorageUnavailable
	ErrBetNotFound         = repo.ErrNotFound
)

// Gateway é a visão que a admissão tem do line provider
type Gateway interface {
	GetEvent(ctx context.Context, id string) (dto.Event, error)
	ListEvents(ctx context.Context) ([]dto.Event, error)
}

// EventsCache é opcional; cacheia apenas a listagem de eventos
type EventsCache interface {
	Get(ctx context.Context) ([]dto.Event, bool, error)
	Set(ctx context.Context, evs []dto.Event) error
}

// Service admite apostas e expõe as consultas do ledger
type Service struct {
	Log      *zap.Logger
	Store    repo.Store
	Gateway  Gateway
	Cache    EventsCache      // opcional
	Now      func() time.Time // relógio injetável (default time.Now)
	OnPlaced func(repo.Bet)   // opcional, chamado após persistir
}

func New(log *zap.Logger, store repo.Store, gw Gateway) *Service {
	return &Service{Log: log, Store: store, Gateway: gw, Now: time.Now}
}

// PlaceBet valida, consulta o evento, aloca o ID e grava a aposta como pending.
// Nada é escrito se qualquer etapa anterior à persistência falhar.
func (s *Service) PlaceBet(ctx context.Context, eventID string, amount repo.Amount) (repo.Bet, error) {
	// 1) validação local, antes de qualquer chamada externa
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return repo.Bet{}, ErrInvalidEventID
	}
	if !amount.Valid() {
		return repo.Bet{}, ErrInvalidAmount
	}

	// 2) snapshot do evento no line provider
	ev, err := s.Gateway.GetEvent(ctx, eventID)
	if err != nil {
		return repo.Bet{}, err
	}

	// 3) janela de admissão; não é transacional com o estado real do evento
	if !ev.Open(s.now()) {
		return repo.Bet{}, ErrBettingClosed
	}

	// 4) ID do contador atômico do ledger
	id, err := s.Store.AllocateID(ctx)
	if err != nil {
		return repo.Bet{}, err
	}

	// 5) status sempre pending, independente do que o cliente mandou
	bet := repo.Bet{
		ID:      id,
		EventID: eventID,
		Amount:  amount,
		Status:  repo.StatusPending,
	}
	if err := s.Store.Put(ctx, bet); err != nil {
		return repo.Bet{}, err
	}

	s.Log.Info("bet placed",
		zap.Int64("bet_id", bet.ID),
		zap.String("event_id", bet.EventID),
		zap.String("amount", bet.Amount.String()),
	)
	if s.OnPlaced != nil {
		s.OnPlaced(bet)
	}
	return bet, nil
}

// ListBets devolve o ledger inteiro; erro de storage nunca vira lista parcial
func (s *Service) ListBets(ctx context.Context) ([]repo.Bet, error) {
	bets, err := s.Store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	return bets, nil
}

func (s *Service) GetBet(ctx context.Context, id int64) (repo.Bet, error) {
	return s.Store.Get(ctx, id)
}

// OpenEvents lista eventos cujo deadline ainda está no futuro
func (s *Service) OpenEvents(ctx context.Context) ([]dto.Event, error) {
	evs, err := s.events(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]dto.Event, 0, len(evs))
	for _, ev := range evs {
		if ev.Deadline.After(now) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Service) events(ctx context.Context) ([]dto.Event, error) {
	if s.Cache != nil {
		if evs, ok, err := s.Cache.Get(ctx); err != nil {
			s.Log.Warn("events cache get failed", zap.Error(err))
		} else if ok {
			return evs, nil
		}
	}

	evs, err := s.Gateway.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, evs); err != nil {
			s.Log.Warn("events cache set failed", zap.Error(err))
		}
	}
	return evs, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
