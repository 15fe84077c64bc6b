package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/admission"
	"github.com/rovshen99/bet-maker/internal/bet-service/dto"
	linedto "github.com/rovshen99/bet-maker/internal/bet-service/linegateway/dto"
	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
)

const maxBodyBytes = 1 << 20

// Mensagens fixas devolvidas em {"detail": ...}; detalhes internos nunca vazam
const (
	detailInvalidAmount = "Amount must have two decimal places"
	detailInvalidBody   = "Invalid request body"
	detailEventNotFound = "Event not found"
	detailBetNotFound   = "Bet not found"
	detailBettingClosed = "Betting deadline for this event has passed or event has finished"
	detailInternal      = "Internal server error"
)

// Bets é o que a API precisa da camada de admissão
type Bets interface {
	PlaceBet(ctx context.Context, eventID string, amount repo.Amount) (repo.Bet, error)
	ListBets(ctx context.Context) ([]repo.Bet, error)
	GetBet(ctx context.Context, id int64) (repo.Bet, error)
	OpenEvents(ctx context.Context) ([]linedto.Event, error)
}

// Metrics agrupa os contadores da API
type Metrics struct {
	BetsPlaced *prometheus.CounterVec // result: ok | invalid | not_found | closed | error
}

// RegisterMetrics cria e registra os contadores no registerer informado
func RegisterMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BetsPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bets_placed_total",
			Help: "Tentativas de aposta por resultado",
		}, []string{"result"}),
	}
	reg.MustRegister(m.BetsPlaced)
	return m
}

// API expõe POST /bet, GET /bets, GET /bets/{id}, GET /events e o /ws
type API struct {
	Log            *zap.Logger
	Bets           Bets
	WS             http.Handler // opcional
	Metrics        *Metrics     // opcional
	AllowedOrigins []string     // vazio = qualquer origem
}

// Router retorna o handler HTTP com CORS aplicado
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/bet", a.placeBet)
	r.Get("/bets", a.listBets)
	r.Get("/bets/{id}", a.getBet)
	r.Get("/events", a.listEvents)
	if a.WS != nil {
		r.Get("/ws", a.WS.ServeHTTP)
	}

	origins := a.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, dto.ErrorResponse{Detail: detail})
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		a.count("invalid")
		writeDetail(w, http.StatusUnprocessableEntity, detailInvalidBody)
		return
	}

	bet, err := a.Bets.PlaceBet(r.Context(), req.EventID, req.Amount)
	if err != nil {
		status, detail, result := classify(err)
		a.count(result)
		if status == http.StatusInternalServerError {
			a.Log.Error("place bet failed",
				zap.String("event_id", req.EventID),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
		}
		writeDetail(w, status, detail)
		return
	}

	a.count("ok")
	writeJSON(w, http.StatusOK, bet)
}

// classify traduz os erros da admissão em status HTTP, detail e label de métrica
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, admission.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, detailInvalidAmount, "invalid"
	case errors.Is(err, admission.ErrInvalidEventID):
		return http.StatusUnprocessableEntity, detailInvalidBody, "invalid"
	case errors.Is(err, admission.ErrEventNotFound):
		return http.StatusNotFound, detailEventNotFound, "not_found"
	case errors.Is(err, admission.ErrBettingClosed):
		return http.StatusBadRequest, detailBettingClosed, "closed"
	default:
		return http.StatusInternalServerError, detailInternal, "error"
	}
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := a.Bets.ListBets(r.Context())
	if err != nil {
		a.Log.Error("list bets failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, detailBetNotFound)
		return
	}

	bet, err := a.Bets.GetBet(r.Context(), id)
	if errors.Is(err, admission.ErrBetNotFound) {
		writeDetail(w, http.StatusNotFound, detailBetNotFound)
		return
	}
	if err != nil {
		a.Log.Error("get bet failed", zap.Int64("bet_id", id), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := a.Bets.OpenEvents(r.Context())
	if err != nil {
		a.Log.Error("list events failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (a *API) count(result string) {
	if a.Metrics != nil {
		a.Metrics.BetsPlaced.WithLabelValues(result).Inc()
	}
}
