package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formgate/internal/events/outbox"
	"formgate/internal/events/publisher"
	"formgate/internal/events/worker"
	"formgate/internal/intake"
	intakemetrics "formgate/internal/intake/metrics"
	"formgate/internal/intake/service"
	intakestore "formgate/internal/intake/store"
	"formgate/internal/jwttoken"
	"formgate/internal/platform/config"
	"formgate/internal/platform/httpserver"
	"formgate/internal/platform/logger"
	"formgate/internal/platform/middleware"
	"formgate/internal/platform/postgres"
	platformredis "formgate/internal/platform/redis"
	"formgate/internal/webhook"
	webhookhandler "formgate/internal/webhook/handler"
	"formgate/internal/webhook/queue"
)

// main wires the dependency graph and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Persistence: postgres when configured, in-memory otherwise.
	var (
		intakeStore service.Store
		registry    webhook.Registry
		outboxStore outbox.Store
	)
	if db != nil {
		intakeStore = intakestore.NewPostgres(db)
		registry = webhook.NewPostgresRegistry(db)
		outboxStore = outbox.NewPostgres(db)
	} else {
		log.Warn("no DATABASE_URL set, using in-memory stores")
		intakeStore = intakestore.NewInMemory()
		registry = webhook.NewInMemoryRegistry()
		outboxStore = outbox.NewInMemory()
	}

	var enqueuer webhook.Enqueuer = queue.NewLogging(log)
	if redisClient != nil {
		enqueuer = queue.NewRedis(redisClient.Client)
	}
	dispatcher := webhook.NewDispatcher(registry, enqueuer, log)

	intakeService := intake.NewService(intakeStore,
		service.WithWebhooks(dispatcher),
		service.WithEvents(outboxStore),
		service.WithLogger(log),
		service.WithMetrics(intakemetrics.New()),
	)

	// Outbox relay: only runs when Kafka is configured. Without it events
	// stay in the outbox and can be drained later.
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer kafka.Close()

		relay := worker.New(outboxStore, kafka, log)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox relay stopped", "error", err.Error())
			}
		}()
	} else {
		log.Warn("no KAFKA_BROKERS set, event stream disabled")
	}

	tokens := jwttoken.New(cfg.JWTSigningKey, "formgate")

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.BrowserLocale)
	router.Use(middleware.Logger(log))

	intake.NewHandler(intakeService, log).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtValidator{tokens}, log))
		webhookhandler.New(registry, log).Register(r)
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting formgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}

// jwtValidator adapts the token service to the auth middleware.
type jwtValidator struct {
	tokens *jwttoken.Service
}

func (v jwtValidator) ValidateToken(token string) (*middleware.Claims, error) {
	claims, err := v.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{AccountID: claims.AccountID, Role: claims.Role}, nil
}
