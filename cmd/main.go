package main

import (
	"context"
	"runtime"
	"time"

	"github.com/Borislavv/transfer-cache/internal/allocator"
	"github.com/Borislavv/transfer-cache/internal/allocator/config"
	"github.com/Borislavv/transfer-cache/pkg/liveness"
	"github.com/Borislavv/transfer-cache/pkg/shutdown"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
)

// Initializes environment variables from .env files and binds them using Viper.
// This allows overriding any value via environment variables.
func init() {
	// Load .env and .env.local files for configuration overrides (optional).
	if err := godotenv.Overload(".env", ".env.local"); err != nil {
		log.Debug().Msgf("[main] no .env files loaded: %v", err)
	}

	// Bind all relevant environment variables using Viper.
	viper.AutomaticEnv()
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("APP_DEBUG")
	_ = viper.BindEnv("TRANSFER_CACHE_MODE")
	_ = viper.BindEnv("NUM_SIZE_CLASSES")
	_ = viper.BindEnv("SPAN_SIZE_IN_BATCHES")
	_ = viper.BindEnv("STRESS_ENABLED")
	_ = viper.BindEnv("STRESS_WORKERS")
	_ = viper.BindEnv("STRESS_RATE_LIMIT")
	_ = viper.BindEnv("STRESS_REPORT_INTERVAL")
	_ = viper.BindEnv("SERVER_NAME")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("SERVER_SHUTDOWN_TIMEOUT")
	_ = viper.BindEnv("IS_PROMETHEUS_METRICS_ENABLED")
	_ = viper.BindEnv("LIVENESS_PROBE_INTERVAL")
}

// setMaxProcs automatically sets the optimal GOMAXPROCS value (CPU parallelism)
// based on the available CPUs and cgroup/docker CPU quotas (uses automaxprocs).
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadCfg loads the configuration struct from environment variables
// and applies defaults for unset values.
func loadCfg() *config.Config {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Err(err).Msg("[main] failed to unmarshal config from envs")
		panic(err)
	}
	if cfg.TransferCacheMode == "" {
		cfg.TransferCacheMode = "lockfree"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = ":8020"
	}
	if cfg.ServerShutDownTimeout == 0 {
		cfg.ServerShutDownTimeout = 5 * time.Second
	}
	return cfg
}

// Main entrypoint: configures and starts the allocator application.
func main() {
	// Create a root context for graceful shutdown and cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optimize GOMAXPROCS for the current environment.
	setMaxProcs()

	// Load the application configuration from env vars.
	cfg := loadCfg()

	// Setup graceful shutdown handler (SIGTERM, SIGINT, etc).
	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Second * 10)

	// Initialize liveness probe for Kubernetes/Cloud health checks.
	probe := liveness.NewProbe(ctx, cfg.LivenessProbeInterval)

	// Initialize and start the allocator application.
	if app, err := allocator.NewApp(ctx, cfg, probe); err != nil {
		log.Err(err).Msg("[main] failed to init allocator app")
	} else {
		// Register app for graceful shutdown.
		gracefulShutdown.Add(1)
		go app.Start(gracefulShutdown)
	}

	// Listen for OS signals or context cancellation and wait for graceful shutdown.
	if err := gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("[main] failed to gracefully shut down service")
	}
}
