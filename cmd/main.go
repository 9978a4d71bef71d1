package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/run-contest/config"
	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/db"
	"github.com/Dosada05/run-contest/handlers"
	"github.com/Dosada05/run-contest/hub"
	"github.com/Dosada05/run-contest/middleware"
	"github.com/Dosada05/run-contest/repositories"
	api "github.com/Dosada05/run-contest/routes"
	"github.com/Dosada05/run-contest/services"
	"github.com/Dosada05/run-contest/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("network", cfg.Network),
	)

	presets, err := config.LoadPresets(cfg.PresetsFile)
	if err != nil {
		logger.Error("failed to load contest presets", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("contest presets loaded", slog.Int("count", len(presets)))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	uploader := storage.NewNoopUploader()
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if r2Config.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2Config)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 archive uploader initialized")
	} else {
		logger.Info("R2 not configured, settlement archive disabled")
	}

	wsHub := hub.New(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket hub started")

	repos := services.Repositories{
		Contests:      repositories.NewPostgresContestRepository(dbConn),
		Registrations: repositories.NewPostgresRegistrationRepository(dbConn),
		Registries:    repositories.NewPostgresRegistryRepository(dbConn),
		Deployments:   repositories.NewPostgresDeploymentRepository(dbConn),
		Ledger:        repositories.NewPostgresLedgerRepository(dbConn),
		Accounts:      repositories.NewPostgresAccountRepository(dbConn),
	}
	logger.Info("repositories initialized")

	telemetry := services.NewTelemetry(logger, otel.Tracer("github.com/Dosada05/run-contest"), prometheus.DefaultRegisterer)
	tx := services.NewSQLTransactor(dbConn, logger)
	archiver := services.NewArchiveService(uploader, repos.Contests)

	contestService := services.NewContestService(tx, repos, wsHub, archiver, telemetry, contest.SystemClock, cfg.Network, presets, logger)
	registryService := services.NewRegistryService(tx, repos, telemetry, cfg.Network, logger)
	ledgerService := services.NewLedgerService(repos.Ledger, repos.Contests, telemetry)
	authService := services.NewAuthService(repos.Accounts, repos.Contests, repos.Registries, cfg.JWTSecretKey, cfg.TokenTTL)
	logger.Info("services initialized")

	go runResultsDueScheduler(ctx, contestService, cfg.SchedulerInterval, logger)

	authHandler := handlers.NewAuthHandler(authService)
	contestHandler := handlers.NewContestHandler(contestService)
	registryHandler := handlers.NewRegistryHandler(registryService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, contestService, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authHandler,
		contestHandler,
		registryHandler,
		ledgerHandler,
		webSocketHandler,
		api.Options{
			Authenticate:   middleware.Authenticate(authService),
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Metrics:        promhttp.Handler(),
		},
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

// runResultsDueScheduler flags started contests whose end time has passed.
func runResultsDueScheduler(ctx context.Context, contests services.ContestService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("results-due scheduler started", slog.Duration("interval", interval))

	run := func() {
		n, err := contests.NotifyResultsDue(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("scheduler: results-due run failed", slog.Any("error", err))
			}
			return
		}
		if n > 0 {
			logger.Info("scheduler: contests awaiting results", slog.Int("count", n))
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			logger.Info("results-due scheduler stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}
