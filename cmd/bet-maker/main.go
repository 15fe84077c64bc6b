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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rovshen99/bet-maker/internal/bet-service/admission"
	eventscache "github.com/rovshen99/bet-maker/internal/bet-service/cache"
	httpapi "github.com/rovshen99/bet-maker/internal/bet-service/http"
	"github.com/rovshen99/bet-maker/internal/bet-service/linegateway"
	"github.com/rovshen99/bet-maker/internal/bet-service/producer"
	"github.com/rovshen99/bet-maker/internal/bet-service/repo"
	"github.com/rovshen99/bet-maker/internal/bet-service/ws"
	"github.com/rovshen99/bet-maker/internal/settlement"
	sharedcache "github.com/rovshen99/bet-maker/internal/shared/cache"
	"github.com/rovshen99/bet-maker/internal/shared/config"
	"github.com/rovshen99/bet-maker/internal/shared/db"
	"github.com/rovshen99/bet-maker/internal/shared/kafka"
	"github.com/rovshen99/bet-maker/internal/shared/logger"
	"github.com/rovshen99/bet-maker/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting service",
		zap.String("ledger", cfg.LedgerBackend),
		zap.String("settlement_source", cfg.SettlementSource))

	// Redis: pub/sub do /ws e cache de eventos; também é o ledger por padrão
	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	store, closeStore := openLedger(ctx, cfg, redisClient, log)
	defer closeStore()

	// Admissão
	gw := linegateway.New(cfg.LineProviderURL, cfg.LineProviderTimeout, log)
	svc := admission.New(log, store, gw)
	if cfg.EventsCacheTTL > 0 {
		svc.Cache = eventscache.New(redisClient, cfg.EventsCacheTTL)
	}
	if cfg.TopicBetPlaced != "" {
		writer := kafka.NewWriter(cfg.Brokers(), cfg.TopicBetPlaced)
		defer writer.Close()
		svc.OnPlaced = producer.NewKafkaPublisher(writer, log).OnPlaced
		log.Info("bet_placed publishing enabled", zap.String("topic", cfg.TopicBetPlaced))
	}

	// Feed /ws alimentado pelo Pub/Sub
	hub := ws.NewHub(log, nil)
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	// Settlement consumer
	consumer := &settlement.Consumer{
		Log:    log,
		Source: newSource(cfg, log),
		Processor: &settlement.Processor{
			Log:         log,
			Store:       store,
			Broadcaster: settlement.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
		},
		MaxBackoff: cfg.SettlementMaxBackoff,
	}
	settlement.RegisterMetrics(prometheus.DefaultRegisterer).Attach(consumer)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("settlement consumer stopped", zap.Error(err))
		}
	}()

	// Métricas e health
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	// HTTP público
	api := &httpapi.API{
		Log:            log,
		Bets:           svc,
		WS:             http.HandlerFunc(hub.HandleWS),
		Metrics:        httpapi.RegisterMetrics(prometheus.DefaultRegisterer),
		AllowedOrigins: cfg.Origins(),
	}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("bet-maker listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	<-consumerDone
	log.Info("bet-maker stopped")
}

// openLedger escolhe o backend do ledger conforme LEDGER_BACKEND
func openLedger(ctx context.Context, cfg config.Config, rdb *redis.Client, log *zap.Logger) (repo.Store, func()) {
	switch cfg.LedgerBackend {
	case "postgres":
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		store := repo.NewPostgres(pg)
		if err := store.Migrate(ctx); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		log.Info("ledger: postgres")
		return store, func() { _ = pg.Close() }
	case "redis":
		log.Info("ledger: redis")
		return repo.NewRedis(rdb), func() {}
	default:
		log.Fatal("unknown LEDGER_BACKEND", zap.String("value", cfg.LedgerBackend))
		return nil, nil
	}
}

// newSource escolhe o broker de resultados conforme SETTLEMENT_SOURCE
func newSource(cfg config.Config, log *zap.Logger) settlement.Source {
	switch cfg.SettlementSource {
	case "kafka":
		return settlement.NewKafkaSource(cfg.Brokers(), cfg.TopicSettlements, cfg.KafkaGroupID, log)
	case "amqp":
		return settlement.NewAMQPSource(cfg.AMQPURL, cfg.QueueSettlements, log)
	default:
		log.Fatal("unknown SETTLEMENT_SOURCE", zap.String("value", cfg.SettlementSource))
		return nil
	}
}
