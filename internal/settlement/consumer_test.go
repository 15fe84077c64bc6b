package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
)

// fakeSource entrega as mensagens de cada sessão e fecha o canal em seguida,
// simulando uma queda de conexão. failOpens faz as primeiras aberturas falharem.
type fakeSource struct {
	mu        sync.Mutex
	sessions  [][][]byte
	failOpens int
	opens     int
	closes    int
	acked     [][]byte
	nacked    [][]byte
}

func (s *fakeSource) Open(ctx context.Context) (<-chan Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.failOpens > 0 {
		s.failOpens--
		return nil, errors.New("connection refused")
	}

	var bodies [][]byte
	if len(s.sessions) > 0 {
		bodies, s.sessions = s.sessions[0], s.sessions[1:]
	}

	out := make(chan Message, len(bodies))
	for _, b := range bodies {
		out <- Message{
			Body: b,
			Ack: func() error {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.acked = append(s.acked, b)
				return nil
			},
			Nack: func(bool) error {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.nacked = append(s.nacked, b)
				return nil
			},
		}
	}
	close(out)
	return out, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSource) snapshot() (opens, acked, nacked int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens, len(s.acked), len(s.nacked)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConsumer_ReconnectsAndKeepsConsuming(t *testing.T) {
	store, _, _ := newLedger(t)
	ids := seed(t, store, "E1", "10.50")
	otherIDs := seed(t, store, "E2", "1.00")

	src := &fakeSource{
		failOpens: 2,
		sessions: [][][]byte{
			{[]byte(`not json`), []byte(`{"event_id":"E1","status":"win"}`)},
			{[]byte(`{"event_id":"E2","status":"lose"}`)},
		},
	}
	c := &Consumer{
		Log:        zap.NewNop(),
		Source:     src,
		Processor:  &Processor{Log: zap.NewNop(), Store: store},
		MinBackoff: time.Millisecond,
		MaxBackoff: 4 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { _, acked, _ := src.snapshot(); return acked == 3 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}

	for id, want := range map[int64]repo.Status{ids[0]: repo.StatusWin, otherIDs[0]: repo.StatusLose} {
		b, err := store.Get(context.Background(), id)
		if err != nil || b.Status != want {
			t.Errorf("bet %d = %+v, %v; want %s", id, b, err, want)
		}
	}
	if opens, _, _ := src.snapshot(); opens < 4 {
		t.Errorf("opens = %d, want >= 4 (2 failures + 2 sessions)", opens)
	}
}

func TestConsumer_RequeueOnStorageFailure(t *testing.T) {
	store, mr, _ := newLedger(t)
	seed(t, store, "E1", "10.50")
	mr.Close()

	src := &fakeSource{sessions: [][][]byte{{[]byte(`{"event_id":"E1","status":"win"}`)}}}
	c := &Consumer{
		Log:          zap.NewNop(),
		Source:       src,
		Processor:    &Processor{Log: zap.NewNop(), Store: store},
		MinBackoff:   time.Millisecond,
		MaxBackoff:   2 * time.Millisecond,
		RequeueDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { _, _, nacked := src.snapshot(); return nacked == 1 })
	cancel()
	<-done

	if _, acked, _ := src.snapshot(); acked != 0 {
		t.Errorf("acked = %d, want 0", acked)
	}
}

func TestConsumer_StopsOnCancelWhileDisconnected(t *testing.T) {
	src := &fakeSource{failOpens: 1 << 30}
	c := &Consumer{
		Log:        zap.NewNop(),
		Source:     src,
		Processor:  &Processor{Log: zap.NewNop()},
		MinBackoff: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { opens, _, _ := src.snapshot(); return opens == 1 })
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNextBackoff(t *testing.T) {
	d := time.Second
	var seq []time.Duration
	for i := 0; i < 7; i++ {
		seq = append(seq, d)
		d = next(d, 30*time.Second)
	}
	want := []time.Duration{1, 2, 4, 8, 16, 30, 30}
	for i := range want {
		if seq[i] != want[i]*time.Second {
			t.Errorf("step %d = %v, want %v", i, seq[i], want[i]*time.Second)
		}
	}
}
