package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/projevo/escrow-service/internal/application/services"
	"github.com/projevo/escrow-service/internal/config"
	"github.com/projevo/escrow-service/internal/infrastructure/cache"
	"github.com/projevo/escrow-service/internal/infrastructure/midtrans"
	"github.com/projevo/escrow-service/internal/infrastructure/persistence"
	"github.com/projevo/escrow-service/internal/infrastructure/persistence/postgres"
	"github.com/projevo/escrow-service/internal/interfaces/rest/handlers"
	"github.com/projevo/escrow-service/internal/interfaces/rest/middleware"
	"github.com/projevo/escrow-service/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting escrow service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	projectionCache := cache.NewRedisProjectionCache(cfg.Redis)
	if err := projectionCache.Ping(ctx); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer projectionCache.Close()

	paymentRepo := postgres.NewPaymentRepository(db.Pool)
	ledgerRepo := postgres.NewLedgerRepository(db.Pool)
	projectRepo := postgres.NewProjectRepository(db.Pool)
	terminRepo := postgres.NewTerminRepository(db.Pool)
	webhookLogRepo := postgres.NewWebhookLogRepository(db.Pool)

	gatewayClient := midtrans.NewGatewayClient(cfg.Midtrans)
	retryGateway := midtrans.NewRetryGatewayClient(gatewayClient, cfg.Retry)

	fees := services.FeeCalculator{
		TaxBps:        cfg.Fees.TaxBps,
		ServiceFeeBps: cfg.Fees.ServiceFeeBps,
	}

	escrowService := services.NewEscrowService(
		paymentRepo,
		ledgerRepo,
		projectRepo,
		terminRepo,
		retryGateway,
		projectionCache,
		db,
		fees,
		logger,
	)
	scheduleService := services.NewScheduleService(
		projectRepo,
		terminRepo,
		paymentRepo,
		projectionCache,
		db,
		fees,
		logger,
	)
	webhookService := services.NewWebhookService(escrowService, webhookLogRepo, paymentRepo, db, logger)
	queryService := services.NewQueryService(paymentRepo, ledgerRepo, projectionCache, logger)

	h := handlers.NewHandlers(
		scheduleService,
		escrowService,
		webhookService,
		queryService,
		cfg.Midtrans.ServerKey,
		logger,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reconciler := worker.NewReconciler(
		paymentRepo,
		webhookLogRepo,
		retryGateway,
		escrowService,
		webhookService,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		cfg.Worker.StuckCutoff,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go reconciler.Start(workerCtx)

	if cfg.Worker.SweepEnabled {
		feeSweeper := worker.NewFeeSweeper(
			ledgerRepo,
			db,
			cfg.Worker.Interval,
			cfg.Worker.BatchSize,
			logger,
		)
		go feeSweeper.Start(workerCtx)
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
