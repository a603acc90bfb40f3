package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/debtledger/backend/internal/config"
	"github.com/vanshika/debtledger/backend/internal/db"
	"github.com/vanshika/debtledger/backend/internal/generator"
	"github.com/vanshika/debtledger/backend/internal/logging"
	"github.com/vanshika/debtledger/backend/internal/repository"
	"github.com/vanshika/debtledger/backend/internal/service"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		users        = flag.Int("users", cfg.NumUsers, "number of users to generate")
		debts        = flag.Int("debts", cfg.NumDebts, "number of debts to generate")
		personal     = flag.Float64("personal-chance", cfg.PersonalChance, "probability that a debt is a personal record")
		confirm      = flag.Float64("confirm-chance", cfg.ConfirmChance, "probability that a shared debt gets confirmed")
		witness      = flag.Float64("witness-chance", cfg.WitnessChance, "probability that a debt gets a witness")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "", "directory to write users.json and debts.json instead of loading")
		inputDir     = flag.String("input-dir", "", "load a dataset previously written with -output-dir")
		writeStdout  = flag.Bool("stdout", false, "write the dataset to stdout instead of loading")
		workers      = flag.Int("workers", 4, "number of concurrent workers while loading")
		migrateFirst = flag.Bool("migrate", true, "apply migrations before loading")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		dataset generator.Dataset
		err     error
	)
	if *inputDir != "" {
		dataset, err = generator.ReadDataset(*inputDir)
	} else {
		gen := generator.New(generator.Config{
			NumUsers:       *users,
			NumDebts:       *debts,
			PersonalChance: clampProbability(*personal),
			ConfirmChance:  clampProbability(*confirm),
			WitnessChance:  clampProbability(*witness),
			Seed:           *seed,
		})
		dataset, err = gen.Generate(ctx, time.Now())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare dataset: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if *outputDir != "" {
		if err := generator.WriteDataset(dataset, *outputDir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "Generated %d users and %d debts into %s\n", len(dataset.Users), len(dataset.Debts), *outputDir)
		return
	}

	appCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(appCfg.Logging).With("component", "seed")

	pool, err := db.Connect(ctx, db.Options{URL: appCfg.Storage.DatabaseURL, MaxConns: int32(appCfg.Storage.MaxConns)})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if *migrateFirst {
		if _, err := db.ApplyMigrations(ctx, pool); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	ledger := service.NewLedgerService(repository.NewPostgres(pool), logger)
	ledger.WithLocation(appCfg.Location)
	loader := service.NewBulkLoader(ledger, *workers)

	start := time.Now()
	logger.Info("registering users", "count", len(dataset.Users), "workers", *workers)
	registered, err := loader.RegisterUsers(ctx, dataset.UserInputs())
	if err != nil {
		logger.Warn("some users failed to register", "error", err)
	}

	inputs, indexes, err := dataset.DebtInputs(registered)
	if err != nil {
		logger.Error("failed to resolve debts", "error", err)
		os.Exit(1)
	}
	logger.Info("recording debts", "count", len(inputs))
	created, err := loader.CreateDebts(ctx, inputs)
	if err != nil {
		logger.Warn("some debts failed", "error", err)
	}

	var answers []service.DebtAnswer
	for i, details := range created {
		if details.Debt.ID == "" || !dataset.Debts[indexes[i]].Confirm {
			continue
		}
		answers = append(answers, service.DebtAnswer{DebtID: details.Debt.ID, ActorID: details.Debt.ConfirmingPartyID()})
	}
	confirmed, err := loader.ConfirmDebts(ctx, answers)
	if err != nil {
		logger.Warn("some confirmations failed", "error", err)
	}

	logger.Info("seed complete",
		"duration", time.Since(start).String(),
		"users", len(registered),
		"debts", len(created),
		"confirmed", confirmed,
	)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
