package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/debtledger/backend/internal/config"
	"github.com/vanshika/debtledger/backend/internal/db"
	"github.com/vanshika/debtledger/backend/internal/graph"
	"github.com/vanshika/debtledger/backend/internal/logging"
	"github.com/vanshika/debtledger/backend/internal/repository"
	"github.com/vanshika/debtledger/backend/internal/service"
)

var errGraphDisabled = errors.New("GRAPH_URI is not set")

func main() {
	var (
		list         = flag.Bool("list", false, "Print the embedded migration files and exit")
		skipMigrate  = flag.Bool("skip-migrate", false, "Do not apply migrations")
		rebuildGraph = flag.Bool("rebuild-graph", false, "Wipe the debt graph and replay every active shared debt")
		pageSize     = flag.Int("page-size", 500, "Debts read per page while rebuilding the graph")
		workers      = flag.Int("workers", 4, "Number of concurrent graph writers")
	)
	flag.Parse()

	if *list {
		files, err := db.MigrationFiles()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list migrations: %v\n", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Fprintln(os.Stdout, f)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "migrate")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.Connect(ctx, db.Options{URL: cfg.Storage.DatabaseURL, MaxConns: int32(cfg.Storage.MaxConns)})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	start := time.Now()
	if !*skipMigrate {
		applied, err := db.ApplyMigrations(ctx, pool)
		if err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied", "files", applied, "count", len(applied))
	}

	if !*rebuildGraph {
		return
	}
	if !cfg.Graph.Enabled() {
		logger.Error("graph rebuild requested", "error", errGraphDisabled)
		os.Exit(1)
	}

	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	projector := graph.NewDebtProjector(client)
	if err := projector.EnsureSchema(ctx); err != nil {
		logger.Error("graph schema setup failed", "error", err)
		os.Exit(1)
	}

	ledger := service.NewLedgerService(repository.NewPostgres(pool), logger)
	ledger.WithWorkers(*workers)
	n, err := ledger.RebuildGraph(ctx, projector, *pageSize)
	if err != nil {
		logger.Error("graph rebuild failed", "error", err, "projected", n)
		os.Exit(1)
	}
	logger.Info("graph rebuild complete", "debts", n, "duration", time.Since(start).String())
}
