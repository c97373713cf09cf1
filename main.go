// flowlens - multi-vantage network-flow behavior analysis pipeline.
//
// Reads one NDJSON flow-record batch per configured vantage point,
// derives a statistical feature vector per batch, clusters and scores
// the vectors, and appends every stage's output to the persistent
// record store for longitudinal querying.
//
// Usage:
//
//	flowlens -config flowlens.yaml
//	flowlens -config flowlens.yaml -input /var/lib/flowlens/batches
//
// Environment variables (override the config file):
//
//	FLOWLENS_DATABASE_URL - PostgreSQL URL (omit for in-memory only)
//	FLOWLENS_REDIS_URL    - Redis URL for the visualization handoff
//	FLOWLENS_INPUT_DIR    - Directory of <vantage>.ndjson batch files
package main

import (
	"context"
	"flag"
	"os"

	"github.com/cvalentine99/flowlens/internal/config"
	"github.com/cvalentine99/flowlens/internal/ingest"
	"github.com/cvalentine99/flowlens/internal/logging"
	"github.com/cvalentine99/flowlens/internal/metrics"
	"github.com/cvalentine99/flowlens/internal/pipeline"
	"github.com/cvalentine99/flowlens/internal/store"
)

const handoffKey = "flowlens:latest_run"

var (
	configFlag = flag.String("config", "", "Path to YAML config file")
	inputFlag  = flag.String("input", "", "Directory of <vantage>.ndjson batch files (overrides config)")
	debugFlag  = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logCfg := logging.DefaultConfig()
	if *debugFlag {
		logCfg.Level = logging.LevelDebug
	}
	logging.Init(logCfg)

	cfg, err := config.Load(configPath())
	if err != nil {
		logging.Error("invalid configuration", logging.Err(err))
		os.Exit(1)
	}
	if *inputFlag != "" {
		cfg.InputDir = *inputFlag
	}

	if cfg.MetricsListen != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsListen); err != nil {
				logging.Warn("metrics endpoint failed", logging.Err(err))
			}
		}()
		logging.Info("metrics endpoint listening", "addr", cfg.MetricsListen)
	}

	st, err := openStore(cfg)
	if err != nil {
		logging.Error("store unavailable", logging.Err(err))
		os.Exit(1)
	}
	defer st.Close()

	batches, dropped, err := ingest.ReadDir(cfg.InputDir, cfg.VantagePoints)
	if err != nil {
		logging.Error("ingestion failed", logging.Err(err))
		os.Exit(1)
	}
	for vp, records := range batches {
		metrics.RecordsIngested.WithLabelValues(vp).Add(float64(len(records)))
		metrics.RecordsDropped.WithLabelValues(vp).Add(float64(dropped[vp]))
		logging.IngestLogger().Debug("batch read", logging.Vantage(vp, len(records), dropped[vp]))
	}

	ctx := context.Background()
	runner := pipeline.NewRunner(cfg, st)
	out, err := runner.Run(ctx, batches)
	if err != nil {
		logging.Error("run failed", logging.Err(err))
		os.Exit(1)
	}
	if out.Empty {
		return
	}

	if cfg.RedisURL != "" {
		pub, err := pipeline.NewPublisher(cfg.RedisURL, handoffKey)
		if err != nil {
			logging.Warn("handoff publisher unavailable", logging.Err(err))
		} else {
			defer pub.Close()
			if err := pub.Publish(ctx, out); err != nil {
				logging.Warn("handoff publish failed", logging.Err(err))
			}
		}
	}
}

func configPath() string {
	if *configFlag != "" {
		return *configFlag
	}
	return os.Getenv("FLOWLENS_CONFIG")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logging.StoreLogger().Warn("no database configured, results are not persisted across runs")
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logging.StoreLogger().Info("connected to postgres")
	return pg, nil
}
