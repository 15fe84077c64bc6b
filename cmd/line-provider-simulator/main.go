package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/line-provider-simulator/catalog"
	"github.com/rovshen99/bet-maker/internal/line-provider-simulator/dto"
	httpapi "github.com/rovshen99/bet-maker/internal/line-provider-simulator/http"
	"github.com/rovshen99/bet-maker/internal/line-provider-simulator/publisher"
	"github.com/rovshen99/bet-maker/internal/shared/config"
	"github.com/rovshen99/bet-maker/internal/shared/logger"
	"github.com/rovshen99/bet-maker/internal/shared/metrics"
)

// Catálogo inicial de eventos simulados
func seedEvents(now time.Time) []dto.Event {
	return []dto.Event{
		{ID: "1", Coefficient: decimal.RequireFromString("1.20"), Deadline: now.Add(10 * time.Minute), Status: "pending"},
		{ID: "2", Coefficient: decimal.RequireFromString("1.15"), Deadline: now.Add(1 * time.Minute), Status: "pending"},
		{ID: "3", Coefficient: decimal.RequireFromString("1.67"), Deadline: now.Add(90 * time.Second), Status: "pending"},
	}
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// coeficiente sai como número no JSON, como no line provider real
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var pub publisher.Settlements
	switch cfg.SettlementSource {
	case "kafka":
		pub = publisher.NewKafka(cfg.Brokers(), cfg.TopicSettlements)
	default:
		pub, err = publisher.NewAMQP(cfg.AMQPURL, cfg.QueueSettlements)
		if err != nil {
			log.Fatal("amqp connect", zap.Error(err))
		}
	}
	defer pub.Close()

	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "line_provider_settlements_published_total",
		Help: "Resultados publicados para o bet-maker",
	})
	prometheus.MustRegister(published)

	api := &httpapi.API{
		Log:       log,
		Catalog:   catalog.New(seedEvents(time.Now())...),
		Publisher: pub,
		Published: published,
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, nil)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("line provider simulator listening",
			zap.String("addr", srv.Addr), zap.String("paths", "/event/{id},/events"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("public server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("line provider simulator stopped")
}
