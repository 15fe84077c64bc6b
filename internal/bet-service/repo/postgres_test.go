package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgres_AllocateID(t *testing.T) {
	p, mock := newTestPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT nextval('bet_id_seq')`)).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(12)))

	id, err := p.AllocateID(context.Background())
	if err != nil {
		t.Fatalf("AllocateID: %v", err)
	}
	if id != 12 {
		t.Errorf("id = %d, want 12", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_Put(t *testing.T) {
	p, mock := newTestPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bets (id, event_id, amount, status)`)).
		WithArgs(int64(3), "E1", "10.50", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	b := Bet{ID: 3, EventID: "E1", Amount: MustAmount("10.5"), Status: StatusPending}
	if err := p.Put(context.Background(), b); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_GetByEvent(t *testing.T) {
	p, mock := newTestPostgres(t)
	rows := sqlmock.NewRows([]string{"id", "event_id", "amount", "status"}).
		AddRow(int64(1), "E1", "10.50", "pending").
		AddRow(int64(2), "E1", "3.00", "win")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM bets WHERE event_id = $1`)).
		WithArgs("E1").
		WillReturnRows(rows)

	bets, err := p.GetByEvent(context.Background(), "E1")
	if err != nil {
		t.Fatalf("GetByEvent: %v", err)
	}
	if len(bets) != 2 {
		t.Fatalf("len = %d, want 2", len(bets))
	}
	if bets[1].Status != StatusWin || bets[0].Amount.String() != "10.50" {
		t.Errorf("bets = %+v", bets)
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	p, mock := newTestPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM bets WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "amount", "status"}))

	if _, err := p.Get(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgres_UpdateStatus(t *testing.T) {
	p, mock := newTestPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bets SET status = $1`)).
		WithArgs("lose", int64(4), "E2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bets SET status = $1`)).
		WithArgs("lose", int64(5), "E2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := p.UpdateStatus(ctx, 4, "E2", StatusLose); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := p.UpdateStatus(ctx, 5, "E2", StatusLose); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgres_Unavailable(t *testing.T) {
	p, mock := newTestPostgres(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM bets ORDER BY id`)).
		WillReturnError(errors.New("connection refused"))

	if _, err := p.GetAll(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("err = %v, want ErrStorageUnavailable", err)
	}
}
