package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentional for simulation
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	zaplog "github.com/salahkhalfi/offlineq/contrib/logging/zap"
	vmmetrics "github.com/salahkhalfi/offlineq/contrib/metrics/vm"
	"github.com/salahkhalfi/offlineq/test/simulation"
	"github.com/salahkhalfi/offlineq/test/simulation/config"
	"github.com/salahkhalfi/offlineq/test/simulation/scenarios"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	profile := flag.String("profile", "quick", "Simulation profile (quick, comprehensive)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	step := flag.Duration("step", 0, "Base time unit for scenario phases (overrides config)")
	storeKind := flag.String("store", "", "Queue store: memory or pebble (overrides config)")
	verbose := flag.Bool("v", false, "Log queue internals")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	settings := config.Default()
	if *configPath != "" {
		var err error
		settings, err = config.Load(*configPath)
		if err != nil {
			logger.Error("Failed to load configuration", "path", *configPath, "error", err)
			return err
		}
	}
	if settings.Simulation.Seed == 0 {
		settings.Simulation.Seed = *seed
	}
	if *step > 0 {
		settings.Simulation.Step = *step
		settings.Queue.SettleDelay = *step
		settings.Queue.ExecuteTimeout = *step
	}
	if *storeKind != "" {
		settings.Queue.Store = *storeKind
	}

	level := zapcore.WarnLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zl, err := zcfg.Build()
	if err != nil {
		logger.Error("Failed to build queue logger", "error", err)
		return err
	}
	queueLogger := zaplog.New(zl.Named("queue"))
	defer func() { _ = queueLogger.Sync() }()

	logger.Info("Starting offline queue simulation",
		"profile", *profile,
		"seed", settings.Simulation.Seed,
		"step", settings.Simulation.Step,
		"store", settings.Queue.Store,
	)

	set := metrics.NewSet()
	collector := vmmetrics.New(vmmetrics.WithQueueName("simulation"), vmmetrics.WithMetricsSet(set))

	// Start pprof and metrics server
	go func() {
		logger.Info("Starting debug server on :6060")
		http.HandleFunc("/metrics", collector.Handler)
		server := &http.Server{
			Addr:              ":6060",
			ReadHeaderTimeout: 3 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil {
			logger.Error("debug server failed", "error", err)
		}
	}()

	// Handle signals for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx, cancelRun := context.WithTimeout(ctx, settings.Simulation.Duration)
	defer cancelRun()

	sim, err := simulation.New(simulation.Config{
		Profile:     *profile,
		Settings:    settings,
		StrictOrder: *profile == "quick",
		QueueLogger: queueLogger,
		Metrics:     collector,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize simulation", "error", err)
		return err
	}

	// Register scenarios based on profile
	registerScenarios(sim, *profile)

	// Run simulation
	if err := sim.Run(ctx); err != nil {
		logger.Error("Simulation failed", "error", err)
		return err
	}

	logger.Info("Simulation completed successfully")

	return nil
}

func registerScenarios(sim *simulation.Simulation, profile string) {
	// Basic scenarios always included
	sim.RegisterScenario(&scenarios.Outage{})
	sim.RegisterScenario(&scenarios.Flapping{})
	sim.RegisterScenario(&scenarios.ServerErrors{})
	sim.RegisterScenario(&scenarios.SlowNetwork{})

	if profile == "comprehensive" {
		sim.RegisterScenario(&scenarios.PacketLoss{})
		sim.RegisterScenario(&scenarios.ServerErrors{Rate: 0.8})
		sim.RegisterScenario(&scenarios.Outage{})
	}
}
