package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	activityhandler "luckdraw/internal/activity/handler"
	activityservice "luckdraw/internal/activity/service"
	activitystore "luckdraw/internal/activity/store"
	"luckdraw/internal/auth"
	authhandler "luckdraw/internal/auth/handler"
	"luckdraw/internal/draw"
	"luckdraw/internal/events"
	"luckdraw/internal/platform/config"
	"luckdraw/internal/platform/httpserver"
	"luckdraw/internal/platform/logger"
	"luckdraw/internal/platform/metrics"
	"luckdraw/internal/platform/postgres"
	platformredis "luckdraw/internal/platform/redis"
	registrationhandler "luckdraw/internal/registration/handler"
	registrationservice "luckdraw/internal/registration/service"
	registrationstore "luckdraw/internal/registration/store"
	"luckdraw/internal/session"
	httptransport "luckdraw/internal/transport/http"
	"luckdraw/pkg/domain"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx := context.Background()
	checks := map[string]httptransport.HealthChecker{}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		db                *sql.DB
		activityStore     activityWideStore
		registrationStore registrationWideStore
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		activityStore = activitystore.NewPostgres(db)
		registrationStore = registrationstore.NewPostgres(db)
		checks["postgres"] = dbHealth{db}
		log.Info("using postgres stores")
	} else {
		activityStore = activitystore.NewInMemory()
		registrationStore = registrationstore.NewInMemory()
		log.Warn("no database configured, using in-memory stores")
	}

	// Principal cache: Redis when configured, in-memory otherwise.
	var cache session.Cache = session.NewInMemoryCache()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = session.NewRedisCache(redisClient.Client)
		checks["redis"] = redisClient
		log.Info("using redis principal cache")
	}

	// Event sinks: in-process store always, Kafka when brokers are set.
	sinks := []events.Sink{events.NewInMemoryStore()}
	kafkaSink, err := events.NewKafkaSink(cfg.Kafka)
	if err != nil {
		log.Error("failed to connect to kafka", "error", err)
		os.Exit(1)
	}
	if kafkaSink != nil {
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)
	}
	publisher := events.NewPublisher(sinks, events.WithLogger(log), events.WithAsyncBuffer(256))
	defer publisher.Close()

	// Organizer auth.
	if cfg.OrganizerID == "" || cfg.OrganizerSecretHash == "" {
		log.Error("LUCKDRAW_ORGANIZER_ID and LUCKDRAW_ORGANIZER_SECRET_HASH are required")
		os.Exit(1)
	}
	organizerID, err := domain.ParsePrincipalID(cfg.OrganizerID)
	if err != nil {
		log.Error("invalid organizer id", "error", err)
		os.Exit(1)
	}
	tokens := auth.NewTokenService(cfg.JWTSigningKey, organizerID, cfg.OrganizerSecretHash, cfg.TokenTTL)
	validator := auth.NewValidator(tokens, cache, cfg.PrincipalCacheTTL, log)

	// Domain services.
	engine := draw.New(activityStore, registrationStore, draw.WithLogger(log), draw.WithMetrics(m))
	activities := activityservice.New(activityStore, registrationStore, engine,
		activityservice.WithLogger(log),
		activityservice.WithMetrics(m),
		activityservice.WithEventPublisher(publisher),
	)
	registrations := registrationservice.New(activityStore, registrationStore,
		registrationservice.WithLogger(log),
		registrationservice.WithMetrics(m),
		registrationservice.WithEventPublisher(publisher),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:  log,
		Metrics: m,
		Handlers: []httptransport.Registrar{
			authhandler.New(tokens, log),
			activityhandler.New(activities, validator, log),
			registrationhandler.New(registrations, validator, log),
		},
		Checks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// The wide store interfaces are the unions of the narrow surfaces each
// consumer declares, so one store value can serve them all.

type activityWideStore interface {
	activityservice.ActivityStore
	registrationservice.ActivityStore
	draw.ActivityStore
}

type registrationWideStore interface {
	registrationservice.RegistrationStore
	draw.RegistrationStore
	activityservice.RegistrationStore
}

type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error { return h.db.PingContext(ctx) }
