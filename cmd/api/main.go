package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"github.com/ivmarchuk/filmstore/internal/checkout/adapters"
	httpadapter "github.com/ivmarchuk/filmstore/internal/checkout/adapters/http"
	checkoutpostgres "github.com/ivmarchuk/filmstore/internal/checkout/adapters/postgres"
	"github.com/ivmarchuk/filmstore/internal/checkout/adapters/stripe"
	checkoutapp "github.com/ivmarchuk/filmstore/internal/checkout/app"
	checkoutmetrics "github.com/ivmarchuk/filmstore/internal/checkout/metrics"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/ivmarchuk/filmstore/internal/config"
	"github.com/ivmarchuk/filmstore/internal/database"
	idempostgres "github.com/ivmarchuk/filmstore/internal/idempotency/postgres"
	"github.com/ivmarchuk/filmstore/internal/kafka"
	"github.com/ivmarchuk/filmstore/internal/notifications"
	"github.com/ivmarchuk/filmstore/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(parseLogLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed successfully")
	}

	meter := otel.Meter("github.com/ivmarchuk/filmstore")

	appMetrics, err := checkoutmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create checkout metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create http metrics", "error", err)
		os.Exit(1)
	}

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create database metrics", "error", err)
		os.Exit(1)
	}

	store := checkoutpostgres.NewStore(pool)
	idemStore := idempostgres.NewStore(pool)
	orderRepo := adapters.NewObservableOrderRepository(store.Orders(), dbMetrics)
	paymentRepo := adapters.NewObservablePaymentRepository(store.Payments(), dbMetrics)

	gateway := stripe.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.Timeout)
	verifier := stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret)

	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create kafka metrics", "error", err)
		os.Exit(1)
	}

	var eventBus ports.EventBus
	if len(cfg.Kafka.Brokers) > 0 {
		bus := kafka.NewEventBus(cfg.Kafka.Brokers)
		defer func() {
			if err := bus.Close(); err != nil {
				logger.Error("kafka writer close failed", "error", err)
			}
		}()
		eventBus = bus
		logger.Info("kafka event bus enabled", "brokers", cfg.Kafka.Brokers)
	} else {
		eventBus = kafka.NewNoopEventBus()
		logger.Info("kafka brokers not configured, using noop event bus")
	}
	eventBus = adapters.NewObservableEventBus(eventBus, kafkaMetrics)

	service := checkoutapp.NewService(checkoutapp.Deps{
		UoW:       store,
		Orders:    orderRepo,
		Payments:  paymentRepo,
		Users:     store.Users(),
		Gateway:   gateway,
		Verifier:  verifier,
		Events:    eventBus,
		IdemStore: idemStore,
		Currency:  cfg.Stripe.Currency,
		Logger:    logger,
		Metrics:   appMetrics,
	})

	var sender ports.EmailSender
	if cfg.SMTP.Host != "" {
		sender = notifications.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		logger.Info("smtp sender enabled", "host", cfg.SMTP.Host)
	} else {
		sender = notifications.NewLogSender(logger)
		logger.Info("smtp host not configured, logging notifications")
	}

	worker := notifications.NewWorker(store.Outbox(), sender, eventBus, logger, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)
	go worker.Run(ctx)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(httpadapter.WithMetrics(httpMetrics))
	router.Use(withLogging(logger))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	router.Get(cfg.HTTP.MetricsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# metrics are exported via OTLP\n"))
	})

	httpadapter.NewHandler(service).Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
