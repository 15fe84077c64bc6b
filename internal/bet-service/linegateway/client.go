package linegateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/linegateway/dto"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrUpstreamUnavailable = errors.New("line provider unavailable")
)

// Client consulta o line provider (dono dos eventos: deadline e status)
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

func New(base string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     log,
	}
}

// GetEvent busca GET /event/{id}; 404 vira ErrEventNotFound, o resto ErrUpstreamUnavailable
func (c *Client) GetEvent(ctx context.Context, id string) (dto.Event, error) {
	var ev dto.Event
	status, err := c.getJSON(ctx, "/event/"+url.PathEscape(id), &ev)
	if status == http.StatusNotFound {
		return dto.Event{}, ErrEventNotFound
	}
	if err != nil {
		return dto.Event{}, err
	}
	return ev, nil
}

// ListEvents busca GET /events
func (c *Client) ListEvents(ctx context.Context) ([]dto.Event, error) {
	var evs []dto.Event
	if _, err := c.getJSON(ctx, "/events", &evs); err != nil {
		return nil, err
	}
	return evs, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", ErrUpstreamUnavailable, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	res, err := c.HTTP.Do(req)
	if err != nil {
		c.Log.Warn("line provider request failed",
			zap.String("path", path), zap.String("request_id", reqID), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		c.Log.Warn("line provider error response",
			zap.String("path", path), zap.String("request_id", reqID), zap.Int("status", res.StatusCode))
		return res.StatusCode, fmt.Errorf("%w: http %d", ErrUpstreamUnavailable, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return res.StatusCode, fmt.Errorf("%w: decode %s: %w", ErrUpstreamUnavailable, path, err)
	}
	return res.StatusCode, nil
}
