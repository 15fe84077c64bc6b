package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/line-provider-simulator/catalog"
	"github.com/rovshen99/bet-maker/internal/line-provider-simulator/dto"
	"github.com/rovshen99/bet-maker/pkg/contracts/events"
)

// Publisher recebe o resultado quando um evento termina
type Publisher interface {
	PublishSettlement(ctx context.Context, s events.EventSettlement) error
}

// API expõe o catálogo de eventos do simulador
type API struct {
	Log       *zap.Logger
	Catalog   *catalog.Catalog
	Publisher Publisher          // opcional
	Published prometheus.Counter // opcional
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/event/{id}", a.getEvent)
	r.Put("/event/{id}", a.putEvent)
	r.Get("/events", a.listEvents)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := a.Catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Event not found"})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Catalog.List())
}

func (a *API) putEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "Invalid request body"})
		return
	}

	ev, settled, err := a.Catalog.Upsert(chi.URLParam(r, "id"), req)
	switch {
	case errors.Is(err, catalog.ErrAlreadyClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "Event already finished"})
		return
	case err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "Invalid event"})
		return
	}

	if settled && a.Publisher != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		s := events.EventSettlement{EventID: ev.ID, Status: ev.Status}
		if err := a.Publisher.PublishSettlement(ctx, s); err != nil {
			a.Log.Error("publish settlement failed", zap.String("event_id", ev.ID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
			return
		}
		if a.Published != nil {
			a.Published.Inc()
		}
		a.Log.Info("settlement published", zap.String("event_id", ev.ID), zap.String("status", ev.Status))
	}
	writeJSON(w, http.StatusOK, ev)
}
