package repo

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS bet_id_seq;
CREATE TABLE IF NOT EXISTS bets (
	id         BIGINT PRIMARY KEY,
	event_id   TEXT NOT NULL,
	amount     NUMERIC(18,2) NOT NULL CHECK (amount > 0),
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS bets_event_id_idx ON bets (event_id);
`

// Postgres implementa o Store do ledger em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Migrate cria sequence, tabela e índice se ainda não existirem
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

// AllocateID usa a sequence: atômica e durável entre restarts
func (p *Postgres) AllocateID(ctx context.Context) (int64, error) {
	var id int64
	if err := p.db.QueryRowContext(ctx, `SELECT nextval('bet_id_seq')`).Scan(&id); err != nil {
		return 0, unavailable("nextval", err)
	}
	return id, nil
}

// Put insere a aposta; em conflito de id só o status é atualizado (amount é imutável)
func (p *Postgres) Put(ctx context.Context, b Bet) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id, event_id, amount, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		  status     = EXCLUDED.status,
		  updated_at = NOW()`,
		b.ID, b.EventID, b.Amount.String(), string(b.Status),
	)
	if err != nil {
		return unavailable("insert bet", err)
	}
	return nil
}

// Get retorna uma aposta pelo id
func (p *Postgres) Get(ctx context.Context, id int64) (Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, event_id, amount, status FROM bets WHERE id = $1`, id)
	if err != nil {
		return Bet{}, unavailable("select bet", err)
	}
	bets, err := scanBets(rows)
	if err != nil {
		return Bet{}, err
	}
	if len(bets) == 0 {
		return Bet{}, ErrNotFound
	}
	return bets[0], nil
}

// GetByEvent usa o índice bets_event_id_idx
func (p *Postgres) GetByEvent(ctx context.Context, eventID string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, event_id, amount, status FROM bets WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, unavailable("select bets by event", err)
	}
	return scanBets(rows)
}

func (p *Postgres) GetAll(ctx context.Context) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, event_id, amount, status FROM bets ORDER BY id`)
	if err != nil {
		return nil, unavailable("select bets", err)
	}
	return scanBets(rows)
}

// UpdateStatus é idempotente: reaplicar o mesmo status só toca updated_at
func (p *Postgres) UpdateStatus(ctx context.Context, id int64, eventID string, status Status) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE bets SET status = $1, updated_at = NOW() WHERE id = $2 AND event_id = $3`,
		string(status), id, eventID)
	if err != nil {
		return unavailable("update status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update status", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func scanBets(rows *sql.Rows) ([]Bet, error) {
	defer rows.Close()

	out := []Bet{}
	for rows.Next() {
		var (
			b              Bet
			amount, status string
		)
		if err := rows.Scan(&b.ID, &b.EventID, &amount, &status); err != nil {
			return nil, unavailable("scan bet", err)
		}
		a, err := NewAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("decode amount of bet %d: %w", b.ID, err)
		}
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		b.Amount, b.Status = a, st
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate bets", err)
	}
	return out, nil
}
