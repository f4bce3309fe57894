// driftmon: phishing-URL drift monitoring service. Wires config, logging,
// persistence, the monitoring core and the HTTP surface; -seed performs
// the initial training run for a fresh deployment.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/phishguard/driftmon/internal/config"
	"github.com/phishguard/driftmon/internal/dataset"
	"github.com/phishguard/driftmon/internal/generator"
	"github.com/phishguard/driftmon/internal/history"
	"github.com/phishguard/driftmon/internal/monitor"
	"github.com/phishguard/driftmon/internal/retrain"
	"github.com/phishguard/driftmon/internal/server"
	"github.com/phishguard/driftmon/internal/store"
	"github.com/phishguard/driftmon/pkg/logger"
)

func main() {
	seed := flag.Bool("seed", false, "train the initial model and reference dataset, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()
	sugar := zl.Sugar()

	st := store.New(cfg.ReferencePath, cfg.ModelPath, dataset.DefaultSchema())
	gen := generator.New(uint64(time.Now().UnixNano()))
	retrainer := retrain.New(sugar, retrain.DefaultTrainer(), st)

	if *seed {
		sugar.Infow("Seeding initial model and reference", "samples", cfg.SeedSamples)
		training, err := gen.Generate(cfg.SeedSamples, generator.DriftNone)
		if err != nil {
			sugar.Fatalw("Training data generation failed", "error", err)
		}
		if err := retrainer.Retrain(context.Background(), training); err != nil {
			sugar.Fatalw("Initial training failed", "error", err)
		}
		sugar.Infow("Initial model and reference written",
			"model", cfg.ModelPath, "reference", cfg.ReferencePath)
		return
	}

	mon, err := monitor.New(sugar, cfg.DriftConfig(), st, gen, retrainer)
	if err != nil {
		sugar.Fatalw("Failed to construct monitor", "error", err)
	}

	hist, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		sugar.Fatalw("Failed to open history store", "error", err)
	}
	mon.SetCycleCompleteCallback(func(result *monitor.CycleResult) {
		if err := hist.Record(result); err != nil {
			sugar.Errorw("Failed to record cycle", "cycle_id", result.ID, "error", err)
		}
	})

	srv := server.New(sugar, mon, hist, cfg.BatchSize)
	if err := srv.Run(cfg.HTTPAddr); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
