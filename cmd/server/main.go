package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/debtledger/backend/internal/auth"
	"github.com/vanshika/debtledger/backend/internal/config"
	"github.com/vanshika/debtledger/backend/internal/db"
	"github.com/vanshika/debtledger/backend/internal/graph"
	"github.com/vanshika/debtledger/backend/internal/logging"
	"github.com/vanshika/debtledger/backend/internal/notify"
	"github.com/vanshika/debtledger/backend/internal/repository"
	"github.com/vanshika/debtledger/backend/internal/scheduler"
	"github.com/vanshika/debtledger/backend/internal/server"
	"github.com/vanshika/debtledger/backend/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	store, closeStore, err := buildStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to open ledger store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ledger := service.NewLedgerService(store, logger.With("component", "ledger"))
	ledger.WithLocation(cfg.Location)
	ledger.WithWorkers(cfg.Scheduler.Workers)

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	var projector *graph.DebtProjector
	if graphClient != nil {
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		projector = graph.NewDebtProjector(graphClient)
		if err := projector.EnsureSchema(ctx); err != nil {
			logger.Warn("graph schema setup failed", "error", err)
		}
		ledger.WithProjector(projector)
	}

	sender, err := buildSender(cfg, ledger, logger)
	if err != nil {
		logger.Error("failed to create notification sender", "error", err)
		os.Exit(1)
	}
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	queue := notify.NewQueue(sender, cfg.Notify.QueueSize, cfg.Notify.Workers, logger.With("component", "notify"))
	queue.Start(runCtx)
	ledger.WithDispatcher(queue)

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	health := server.LedgerHealthService{Store: store}
	var exposure server.ExposureReader
	if graphClient != nil {
		health.Graph = graphClient
		exposure = projector
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              server.NewAPIHandlers(logger, ledger, issuer, exposure),
		Issuer:           issuer,
		AllowedOrigins:   server.SplitOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	if cfg.Scheduler.Enabled {
		runner := scheduler.New(ledger, scheduler.Options{
			RunHour:      cfg.Scheduler.RunHour,
			ReminderDays: cfg.Scheduler.ReminderDays,
			Dedupe:       cfg.Scheduler.ReminderDedupe,
			Location:     cfg.Location,
		}, logger.With("component", "scheduler"))
		go runner.Run(runCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	stopRun()
	queue.Close()
	if dropped := queue.Dropped(); dropped > 0 {
		logger.Warn("notifications dropped during run", "count", dropped)
	}
}

func buildStore(ctx context.Context, logger *slog.Logger, cfg config.Config) (repository.Store, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		logger.Warn("using in-memory ledger store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	pool, err := db.Connect(ctx, db.Options{URL: cfg.Storage.DatabaseURL, MaxConns: int32(cfg.Storage.MaxConns)})
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.MigrateOnStart {
		applied, err := db.ApplyMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied", "files", applied)
	}
	return repository.NewPostgres(pool), pool.Close, nil
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if !cfg.Graph.Enabled() {
		return nil, nil
	}
	return graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
}

func buildSender(cfg config.Config, users notify.UserLookup, logger *slog.Logger) (notify.Sender, error) {
	if cfg.Telegram.BotToken == "" {
		return notify.NewLogSender(logger.With("component", "notify")), nil
	}
	bot, err := notify.NewTelegramBot(cfg.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	return notify.NewTelegramSender(bot, users, logger.With("component", "telegram")), nil
}
