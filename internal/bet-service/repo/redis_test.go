package repo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb), mr
}

func putBet(t *testing.T, s Store, eventID, amount string) Bet {
	t.Helper()
	ctx := context.Background()
	id, err := s.AllocateID(ctx)
	if err != nil {
		t.Fatalf("AllocateID: %v", err)
	}
	b := Bet{ID: id, EventID: eventID, Amount: MustAmount(amount), Status: StatusPending}
	if err := s.Put(ctx, b); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return b
}

func TestRedis_PutAndGet(t *testing.T) {
	s, mr := newTestRedis(t)
	b := putBet(t, s, "1", "10.50")

	got, err := s.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EventID != "1" || got.Amount.String() != "10.50" || got.Status != StatusPending {
		t.Errorf("Get = %+v", got)
	}

	// layout compatível: bet:{id}:{event_id}
	if v := mr.HGet("bet:1:1", "amount"); v != "10.50" {
		t.Errorf("hash amount = %q, want 10.50", v)
	}

	if _, err := s.Get(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(999) err = %v, want ErrNotFound", err)
	}
}

func TestRedis_PutKeepsAmount(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	b := putBet(t, s, "1", "10.50")

	b.Amount = MustAmount("99.99")
	b.Status = StatusWin
	if err := s.Put(ctx, b); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _ := s.Get(ctx, b.ID)
	if got.Amount.String() != "10.50" {
		t.Errorf("amount = %s, want immutable 10.50", got.Amount)
	}
	if got.Status != StatusWin {
		t.Errorf("status = %s, want win", got.Status)
	}
}

func TestRedis_GetByEventAndAll(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()
	a1 := putBet(t, s, "A", "1.00")
	a2 := putBet(t, s, "A", "2.50")
	b1 := putBet(t, s, "B", "3.10")

	byA, err := s.GetByEvent(ctx, "A")
	if err != nil {
		t.Fatalf("GetByEvent: %v", err)
	}
	if ids := sortedIDs(byA); len(ids) != 2 || ids[0] != a1.ID || ids[1] != a2.ID {
		t.Errorf("GetByEvent(A) ids = %v", ids)
	}

	none, err := s.GetByEvent(ctx, "C")
	if err != nil || len(none) != 0 {
		t.Errorf("GetByEvent(C) = %v, %v; want empty", none, err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetAll len = %d, want 3", len(all))
	}
	for _, b := range all {
		if b.ID == b1.ID && b.Amount.String() != "3.10" {
			t.Errorf("amount of B bet = %s, want 3.10", b.Amount)
		}
	}
}

func TestRedis_UpdateStatus(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()
	b := putBet(t, s, "1", "5.00")

	for i := 0; i < 2; i++ {
		if err := s.UpdateStatus(ctx, b.ID, "1", StatusWin); err != nil {
			t.Fatalf("UpdateStatus #%d: %v", i, err)
		}
	}
	got, _ := s.Get(ctx, b.ID)
	if got.Status != StatusWin || got.Amount.String() != "5.00" {
		t.Errorf("after update = %+v", got)
	}

	if err := s.UpdateStatus(ctx, 42, "1", StatusLose); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(missing) err = %v, want ErrNotFound", err)
	}
	if mr.Exists("bet:42:1") {
		t.Error("UpdateStatus created a partial record")
	}
}

func TestRedis_AllocateIDConcurrent(t *testing.T) {
	s, _ := newTestRedis(t)
	const n = 50

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.AllocateID(context.Background())
			if err != nil {
				t.Errorf("AllocateID: %v", err)
				return
			}
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != n {
		t.Errorf("distinct ids = %d, want %d", len(ids), n)
	}
}

func TestRedis_Unavailable(t *testing.T) {
	s, mr := newTestRedis(t)
	mr.Close()

	ctx := context.Background()
	if _, err := s.AllocateID(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("AllocateID err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := s.GetAll(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("GetAll err = %v, want ErrStorageUnavailable", err)
	}
	if err := s.UpdateStatus(ctx, 1, "1", StatusWin); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("UpdateStatus err = %v, want ErrStorageUnavailable", err)
	}
}

func sortedIDs(bets []Bet) []int64 {
	ids := make([]int64, 0, len(bets))
	for _, b := range bets {
		ids = append(ids, b.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
