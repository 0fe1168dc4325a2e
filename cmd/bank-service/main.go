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

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/auth"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/config"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/httpapi"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/hub"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/mq"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/payments"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store/postgres"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/telemetry"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/worker"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := telemetry.Setup(ctx, "bank-service", logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracer shutdown failed", "error", err)
		}
	}()

	if cfg.TLS.Enabled {
		for _, file := range []string{cfg.TLS.CertFile, cfg.TLS.KeyFile} {
			if _, err := os.Stat(file); err != nil {
				logger.Error("tls material missing", "file", file, "error", err)
				os.Exit(1)
			}
		}
	}

	pool, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout, cfg.Database.MaxConns)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "files", applied)
		}
	}

	store := postgres.NewStore(pool, postgres.Options{QueryTimeout: cfg.Database.QueryTimeout})

	accounts, err := auth.NewService(store, auth.Options{BcryptCost: auth.DefaultBcryptCost})
	if err != nil {
		logger.Error("auth service init failed", "error", err)
		os.Exit(1)
	}
	sessions := auth.NewSessions(store, auth.SessionOptions{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})
	paymentService := payments.NewService(store, payments.Options{
		ListLimit:    cfg.Payments.ListLimit,
		MaxBatchSize: cfg.Payments.MaxBatchSize,
	})
	realtime := hub.New(logger)

	handler := httpapi.NewHandler(accounts, sessions, paymentService, realtime, logger, httpapi.Options{
		Database:               store,
		AllowStaffRegistration: cfg.Server.AllowStaffRegistration,
		MaxBodyBytes:           cfg.Server.MaxBodyBytes,
		ListLimit:              cfg.Payments.ListLimit,
		CORSOrigin:             cfg.Server.CORSOrigin,
		StaticDir:              cfg.Server.StaticDir,
		RateLimit: httpapi.RateLimitConfig{
			Window:     cfg.RateLimit.Window,
			Max:        cfg.RateLimit.Max,
			TrustProxy: cfg.RateLimit.TrustProxy,
		},
	})
	if cfg.Server.AllowStaffRegistration {
		logger.Warn("staff self-registration is enabled")
	}

	go worker.Start(ctx, cfg.Workers.RelayInterval, "realtime-relay",
		worker.NewRelay(store, worker.HubPublisher{Hub: realtime}, worker.RelayConfig{
			Consumer:  "realtime",
			BatchSize: cfg.Workers.RelayBatchSize,
		}, logger), logger)

	if cfg.AMQP.URL != "" {
		broker, err := mq.New(mq.Config{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange}, logger)
		if err != nil {
			logger.Error("rabbitmq misconfigured, settlement relay disabled", "error", err)
		} else {
			defer broker.Close()
			go broker.Run(ctx)
			go worker.Start(ctx, cfg.Workers.RelayInterval, "settlement-relay",
				worker.NewRelay(store, broker, worker.RelayConfig{
					Consumer:  "settlement",
					BatchSize: cfg.Workers.RelayBatchSize,
					Types:     []string{models.EventPaymentSubmitted},
				}, logger), logger)
		}
	}

	go worker.Start(ctx, cfg.Workers.SweepInterval, "session-sweeper", worker.NewSessionSweeper(sessions, logger), logger)

	server := &http.Server{
		Addr:         cfg.HTTPSAddress(),
		Handler:      otelhttp.NewHandler(handler.Routes(), "bank-service"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var redirect *http.Server
	if cfg.TLS.Enabled {
		redirect = &http.Server{
			Addr:              cfg.RedirectAddress(),
			Handler:           httpapi.RedirectToHTTPS(cfg.Server.Port),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("redirect listener started", "addr", redirect.Addr)
			if err := redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("redirect server error", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("bank-service listening", "addr", server.Addr, "tls", cfg.TLS.Enabled)
		var err error
		if cfg.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if redirect != nil {
		if err := redirect.Shutdown(shutdownCtx); err != nil {
			logger.Error("redirect shutdown error", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
