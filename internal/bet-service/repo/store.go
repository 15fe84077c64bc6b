package repo

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("bet not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Store é o ledger de apostas compartilhado entre admissão e settlement.
// Implementações não fazem retry; falhas de backend embrulham ErrStorageUnavailable.
type Store interface {
	// AllocateID devolve um ID novo, estritamente crescente e nunca reutilizado.
	AllocateID(ctx context.Context) (int64, error)
	// Put grava um registro novo; num registro existente só o status é escrito.
	Put(ctx context.Context, b Bet) error
	Get(ctx context.Context, id int64) (Bet, error)
	GetByEvent(ctx context.Context, eventID string) ([]Bet, error)
	GetAll(ctx context.Context) ([]Bet, error)
	// UpdateStatus altera apenas o campo status; reaplicar o mesmo valor é no-op.
	UpdateStatus(ctx context.Context, id int64, eventID string, status Status) error
	Ping(ctx context.Context) error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
