package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/justiceops/videolink-booking/internal/api/router"
	"github.com/justiceops/videolink-booking/internal/availability"
	"github.com/justiceops/videolink-booking/internal/bookingreq"
	"github.com/justiceops/videolink-booking/internal/clients/bookingapi"
	"github.com/justiceops/videolink-booking/internal/clients/prisonerapi"
	appconfig "github.com/justiceops/videolink-booking/internal/config"
	"github.com/justiceops/videolink-booking/internal/events"
	"github.com/justiceops/videolink-booking/internal/http/handlers"
	"github.com/justiceops/videolink-booking/internal/journey"
	"github.com/justiceops/videolink-booking/internal/observability/metrics"
	"github.com/justiceops/videolink-booking/internal/refdata"
	"github.com/justiceops/videolink-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting videolink-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	bookingClient := bookingapi.NewClient(cfg.BookingAPIBaseURL, cfg.BookingAPIToken, cfg.ClientTimeout, logger.Component("bookingapi"))
	prisonerClient := prisonerapi.NewClient(cfg.PrisonerAPIBaseURL, cfg.PrisonerAPIToken, cfg.ClientTimeout, logger.Component("prisonerapi"))

	drafts := journey.NewStore(redisClient, cfg.DraftTTL, nil)
	checker := availability.NewChecker(bookingClient, nil)
	builder := bookingreq.NewBuilder(bookingreq.FeatureConfig{
		HMCTSLinkAndGuestPIN: cfg.HMCTSLinkAndGuestPIN,
	})
	refdataSvc := refdata.New(bookingClient, redisClient, cfg.RefDataTTL, nil)

	journeyMetrics := metrics.NewJourneyMetrics(prometheus.DefaultRegisterer)

	// The journey event log is optional: without a database the service
	// still books, it just stops feeding the audit endpoint.
	var (
		recorder      handlers.EventRecorder
		eventsHandler *handlers.EventsHandler
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		eventStore := events.NewStore(pool)
		recorder = eventStore
		eventsHandler = handlers.NewEventsHandler(eventStore, logger.Component("events"))
	} else {
		logger.Warn("DATABASE_URL not set, journey event log disabled")
	}

	journeyHandler := handlers.NewJourneyHandler(
		drafts,
		prisonerClient,
		bookingClient,
		checker,
		builder,
		recorder,
		journeyMetrics,
		logger.Component("journey"),
		handlers.WithPrisonWarningWindow(cfg.PrisonWarningWindow),
	)
	refdataHandler := handlers.NewRefDataHandler(refdataSvc, logger.Component("refdata"))

	r := router.New(&router.Config{
		Logger:             logger,
		JourneyHandler:     journeyHandler,
		RefDataHandler:     refdataHandler,
		EventsHandler:      eventsHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
		SessionSecret:      cfg.SessionSecret,
		SessionCookieName:  cfg.SessionCookie,
		SessionLifetime:    cfg.SessionLifetime,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
