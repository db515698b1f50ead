package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/homely-api/internal/amenity"
	"github.com/yourorg/homely-api/internal/app"
	"github.com/yourorg/homely-api/internal/audit"
	"github.com/yourorg/homely-api/internal/dataset"
	"github.com/yourorg/homely-api/internal/env"
	"github.com/yourorg/homely-api/internal/events"
	"github.com/yourorg/homely-api/internal/logger"
	"github.com/yourorg/homely-api/internal/metrics"
	"github.com/yourorg/homely-api/internal/recorder"
	"github.com/yourorg/homely-api/internal/redisx"
	"github.com/yourorg/homely-api/internal/session"
	"github.com/yourorg/homely-api/internal/store"
	"github.com/yourorg/homely-api/internal/valuation"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	log := logger.New(env.Get("LOG_LEVEL", "info"))
	slog.SetDefault(log)

	port := env.GetInt("PORT", 4002)
	valuationURL := env.Must("VALUATION_URL")

	sources, err := amenity.LoadSources(os.Getenv("AMENITY_SOURCES_FILE"), env.Get("AMENITY_DATA_DIR", "data"))
	if err != nil {
		log.Error("amenity sources", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	catalog := dataset.NewCatalog()
	svc := &app.Service{
		Catalog:   catalog,
		Sessions:  session.NewMemoryStore(env.GetDuration("SESSION_TTL", 24*time.Hour)),
		Sequencer: session.NewSequencer(),
		Predictor: valuation.NewClient(valuation.Config{
			BaseURL:           valuationURL,
			Timeout:           env.GetDuration("VALUATION_TIMEOUT", 15*time.Second),
			RetryMax:          env.GetInt("VALUATION_RETRY_MAX", 0),
			RequestsPerSecond: env.GetFloat("VALUATION_RPS", 0),
		}),
		Metrics: m,
		Render:  valuation.RenderOptions{SortByMagnitude: env.GetBool("SORT_ATTRIBUTION", false)},
		Logger:  log,
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rc := redisx.New(addr, os.Getenv("REDIS_PASSWORD"), env.GetInt("REDIS_DB", 0))
		defer rc.Close()
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable; using in-memory sessions", slog.String("error", err.Error()))
		} else {
			svc.Sessions = &session.RedisStore{Redis: rc, TTL: env.GetDuration("SESSION_TTL", 24*time.Hour)}
			svc.Cache = rc
			svc.CacheTTL = env.GetDuration("PREDICTION_CACHE_TTL", time.Hour)
		}
		cancel()
	}

	loader := &dataset.Loader{
		Catalog: catalog,
		Logger:  log,
		Config: dataset.Config{
			PropertiesSource: env.Get("PROPERTIES_SOURCE", "data/properties.json"),
			AmenitySources:   sources,
		},
	}

	pub := events.NewInMemory(256)
	var sink recorder.Sink
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		st, err := store.Open(dsn)
		if err != nil {
			log.Error("store open", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer st.Close()
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := st.Ping(ctx); err != nil {
			cancel()
			log.Error("postgres ping", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := st.Migrate(ctx); err != nil {
			cancel()
			log.Error("postgres migrate", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cancel()
		sink = st
		svc.History = st
		loader.DB = st
	}

	rec := recorder.New(256, 2, sink, pub, log)
	svc.Recorder = rec
	go (&audit.Consumer{Pub: pub, Metrics: m, Logger: log}).Run(rootCtx)

	go func() {
		if err := loader.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("dataset loader stopped", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr: ":" + strconv.Itoa(port),
		Handler: BuildRouter(RouterDeps{
			Service:         svc,
			Catalog:         catalog,
			Metrics:         m,
			Logger:          log,
			RateLimitPerMin: env.GetInt("RATE_LIMIT_PER_MIN", 100),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-rootCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("homely-api listening", slog.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", slog.String("error", err.Error()))
	}
	rec.Close()
}
