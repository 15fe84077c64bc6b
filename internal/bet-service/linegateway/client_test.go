package linegateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/linegateway/dto"
)

func TestClient_GetEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		switch r.URL.Path {
		case "/event/1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"1","coefficient":1.2,"deadline":"2030-01-02T15:04:05Z","status":"pending"}`))
		case "/event/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/event/garbage":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL, time.Second, zap.NewNop())
	ctx := context.Background()

	ev, err := c.GetEvent(ctx, "1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if ev.ID != "1" || ev.Status != "pending" || ev.Deadline.Year() != 2030 {
		t.Errorf("event = %+v", ev)
	}

	if _, err := c.GetEvent(ctx, "nope"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("missing event err = %v, want ErrEventNotFound", err)
	}
	if _, err := c.GetEvent(ctx, "broken"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("502 err = %v, want ErrUpstreamUnavailable", err)
	}
	if _, err := c.GetEvent(ctx, "garbage"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("bad body err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c := New(addr, 200*time.Millisecond, zap.NewNop())
	if _, err := c.ListEvents(context.Background()); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestClient_ListEventsPreservesFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","coefficient":1.2,"deadline":"2023-10-29T21:54:56.516676","status":"pending"}]`))
	}))
	defer server.Close()

	evs, err := New(server.URL, time.Second, zap.NewNop()).ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	out, _ := json.Marshal(evs)
	if !strings.Contains(string(out), `"coefficient":1.2`) {
		t.Errorf("re-encoded event lost fields: %s", out)
	}
}

func TestEventOpen(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		ev   dto.Event
		want bool
	}{
		{"future pending", dto.Event{Deadline: dto.Deadline{Time: now.Add(time.Minute)}, Status: "pending"}, true},
		{"upper-case status", dto.Event{Deadline: dto.Deadline{Time: now.Add(time.Minute)}, Status: "PENDING"}, true},
		{"deadline now", dto.Event{Deadline: dto.Deadline{Time: now}, Status: "pending"}, false},
		{"past", dto.Event{Deadline: dto.Deadline{Time: now.Add(-time.Minute)}, Status: "pending"}, false},
		{"finished", dto.Event{Deadline: dto.Deadline{Time: now.Add(time.Minute)}, Status: "win"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Open(now); got != tt.want {
				t.Errorf("Open = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDeadline(t *testing.T) {
	for _, s := range []string{
		"2023-10-29T21:54:56.516676",
		"2023-10-29 21:54:56.516676",
		"2023-10-29T21:54:56Z",
		"2023-10-29T21:54:56+03:00",
	} {
		if _, err := dto.ParseDeadline(s); err != nil {
			t.Errorf("ParseDeadline(%q): %v", s, err)
		}
	}
	if _, err := dto.ParseDeadline("tomorrow"); err == nil {
		t.Error("expected error for invalid deadline")
	}
}
