package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devrev/pairdb/tabletsim/internal/config"
	simerrors "github.com/devrev/pairdb/tabletsim/internal/errors"
	"github.com/devrev/pairdb/tabletsim/internal/health"
	"github.com/devrev/pairdb/tabletsim/internal/metrics"
	"github.com/devrev/pairdb/tabletsim/internal/model"
	"github.com/devrev/pairdb/tabletsim/internal/report"
	"github.com/devrev/pairdb/tabletsim/internal/server"
	"github.com/devrev/pairdb/tabletsim/internal/service"
	"github.com/devrev/pairdb/tabletsim/internal/validation"
	"github.com/devrev/pairdb/tabletsim/internal/workload"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultConfigPath = "./config.yaml"

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	runID := uuid.NewString()
	logger, err := initLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := workload.NewGenerator(cfg.Simulation.Seed)
	memTableSize := gen.IntBetween(cfg.Simulation.MemTableSizeMin, cfg.Simulation.MemTableSizeMax)
	partitionSize := gen.IntBetween(cfg.Simulation.PartitionSizeMin, cfg.Simulation.PartitionSizeMax)

	logger.Info("Configuration loaded",
		zap.Int64("seed", gen.Seed()),
		zap.Int("nodes", cfg.Simulation.Nodes),
		zap.Int("replication_factor", cfg.Simulation.ReplicationFactor),
		zap.Int("tablets", cfg.Simulation.Tablets),
		zap.Int64("max_partition_key", cfg.Simulation.MaxPartitionKey),
		zap.Int("memtable_size", memTableSize),
		zap.Int("partition_size", partitionSize))

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, runID)

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = server.NewMetricsServer(&server.MetricsServerConfig{
			Port: cfg.Metrics.Port,
			Path: cfg.Metrics.Path,
		}, registry, logger)
		if err := metricsServer.Start(); err != nil {
			logger.Fatal("Failed to start metrics server", zap.Error(err))
		}
		defer metricsServer.Stop()
	}

	// Build the cluster
	cluster := service.NewCluster(&service.ClusterConfig{
		ReplicationFactor: cfg.Simulation.ReplicationFactor,
		MemTableSize:      memTableSize,
		MaxKey:            cfg.Simulation.MaxPartitionKey,
		NewFlushPolicy: func(id model.NodeID) service.FlushPolicy {
			return service.NewRandomThresholdPolicy(gen.Seed()+int64(id)+1, cfg.Flush.LowWatermark)
		},
	}, m, logger)
	for i := 0; i < cfg.Simulation.Nodes; i++ {
		cluster.AddNode()
	}

	validator := validation.NewValidator(cfg.Simulation.MaxPartitionKey)

	bounds, err := gen.TabletBounds(cfg.Simulation.Tablets, cfg.Simulation.MaxPartitionKey)
	if err != nil {
		logger.Fatal("Failed to generate tablet bounds", errorFields(err)...)
	}
	if err := validator.ValidateTabletBounds(bounds); err != nil {
		logger.Fatal("Invalid tablet bounds", errorFields(err)...)
	}
	for _, upper := range bounds {
		if _, err := cluster.AddTablet(upper); err != nil {
			logger.Fatal("Failed to add tablet",
				append(errorFields(err), zap.Int64("upper_bound", upper))...)
		}
	}
	if err := cluster.CheckCoverage(); err != nil {
		logger.Fatal("Tablets do not cover the key space", errorFields(err)...)
	}

	// Apply the workload
	mutations, err := loadMutations(cfg, gen, partitionSize)
	if err != nil {
		logger.Fatal("Failed to load mutations", errorFields(err)...)
	}

	applier := workload.NewApplier(cluster, validator, cfg.Simulation.Workers, logger)
	if _, err := applier.Apply(ctx, mutations); err != nil {
		logger.Fatal("Failed to apply mutations", errorFields(err)...)
	}
	cluster.PublishStats()

	checker := health.NewHealthChecker(cluster, logger)
	if status := checker.Run(); status.Status != model.ClusterStatusHealthy {
		logger.Warn("Cluster checks did not pass", zap.String("status", string(status.Status)))
	}

	compactionSvc := service.NewCompactionService(m, logger)
	buckets := compactionSvc.SplitIntoBuckets(cluster.CollectSSTables())

	summary := report.Build(runID, gen.Seed(), cluster, buckets)
	if err := report.Render(os.Stdout, summary); err != nil {
		logger.Error("Failed to render report", zap.Error(err))
	}

	if metricsServer != nil {
		metricsServer.SetHealthChecker(checker)
		metricsServer.SetSummary(summary)
		if cfg.Metrics.Hold {
			logger.Info("Simulation finished, serving metrics until interrupted",
				zap.Int("port", cfg.Metrics.Port))
			<-ctx.Done()
			logger.Info("Shutting down gracefully...")
		}
	}
}

// loadConfig reads CONFIG_PATH, falling back to defaults when the default
// file is absent
func loadConfig() (*config.Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		configPath = defaultConfigPath
	}
	return config.LoadConfig(configPath)
}

// loadMutations returns the run's mutation stream
func loadMutations(cfg *config.Config, gen *workload.Generator, partitionSize int) ([]model.Mutation, error) {
	if cfg.Workload.Source == config.SourceFile {
		return workload.ReadMutationsFile(cfg.Workload.Path)
	}
	return gen.Mutations(*cfg.Simulation.Records, cfg.Simulation.MaxPartitionKey, partitionSize), nil
}

// errorFields attaches the code of a simulation error and whether it marks
// a misconfigured run
func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if simerrors.IsSimError(err) {
		fields = append(fields,
			zap.Int("error_code", int(simerrors.GetCode(err))),
			zap.Bool("misconfigured", simerrors.IsFatal(err)))
	}
	return fields
}

// initLogger initializes the zap logger
func initLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
	}
	return zcfg.Build()
}
