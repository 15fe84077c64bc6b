package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

const writeWait = 2 * time.Second

// client serializa as escritas: gorilla/websocket aceita um único writer por conexão
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por event_id
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu sync.RWMutex
	// eventID -> set de clientes
	subs map[string]map[*client]struct{}
}

// NewHub cria o Hub com a política de origem informada (nil aceita qualquer origem)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS cuida do ciclo de vida de uma conexão: subscribe/unsubscribe por evento e ping
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.EventID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.EventID]; !ok {
				h.subs[msg.EventID] = make(map[*client]struct{})
			}
			h.subs[msg.EventID][c] = struct{}{}
			h.mu.Unlock()
			_ = c.write([]byte(`{"type":"subscribed","event_id":` + quote(msg.EventID) + `}`))
		case "unsubscribe":
			h.mu.Lock()
			if set, ok := h.subs[msg.EventID]; ok {
				delete(set, c)
				if len(set) == 0 {
					delete(h.subs, msg.EventID)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}
}

// drop remove o cliente de todas as assinaturas
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ev, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, ev)
		}
	}
}

// Subscribers conta os clientes inscritos num evento
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[eventID])
}

// Broadcast envia a liquidação para os inscritos no event_id correspondente
func (h *Hub) Broadcast(s events.BetSettled) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[s.EventID]))
	for c := range h.subs[s.EventID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(SettlementUpdate{Type: "bet_settled", Payload: s})
	if err != nil {
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.String("event_id", s.EventID), zap.Error(err))
		}
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
