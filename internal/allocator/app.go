package allocator

import (
	"context"
	"runtime"
	"time"

	"github.com/Borislavv/transfer-cache/internal/allocator/config"
	"github.com/Borislavv/transfer-cache/internal/allocator/server"
	"github.com/Borislavv/transfer-cache/pkg/liveness"
	"github.com/Borislavv/transfer-cache/pkg/prometheus/metrics"
	"github.com/Borislavv/transfer-cache/pkg/shutdown"
	"github.com/Borislavv/transfer-cache/pkg/stress"
	"github.com/Borislavv/transfer-cache/pkg/utils"
	"github.com/rs/zerolog/log"
)

// App defines the allocator application lifecycle interface.
type App interface {
	Start(gc shutdown.Gracefuller)
}

// Allocator wires the transfer-cache hierarchy, the stress workload, the
// metrics meter and the HTTP surface together.
type Allocator struct {
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	probe  liveness.Prober
	runner *stress.Runner
	meter  metrics.Meter
	server server.Http
}

// NewApp builds the allocator app: the runner owns one central free list and
// one transfer cache per size class; the server exposes their stats.
func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*Allocator, error) {
	ctx, cancel := context.WithCancel(ctx)

	runner := stress.New(&cfg.Config)

	meter, err := metrics.New()
	if err != nil {
		cancel()
		return nil, err
	}

	srv, err := server.New(ctx, cfg, runner.Manager(), probe)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Allocator{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		probe:  probe,
		runner: runner,
		meter:  meter,
		server: srv,
	}, nil
}

// Start runs the HTTP server, the telemetry loop and (when enabled) the stress
// workload, and handles graceful shutdown. Blocks until the server exits.
func (a *Allocator) Start(gc shutdown.Gracefuller) {
	defer func() {
		a.stop()
		gc.Done()
	}()

	log.Info().Msg("starting allocator app")

	a.runTelemetry()
	if a.cfg.StressEnabled {
		go func() {
			if err := a.runner.Run(a.ctx); err != nil {
				log.Err(err).Msg("stress workload finished with verification errors")
			}
		}()
	}

	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		a.probe.Watch(a) // Call first due to it does not block the green-thread
		a.server.Start() // Blocks the green-thread
	}()

	log.Info().Msg("allocator app has been started")

	<-waitCh // Wait until the server exits
}

func (a *Allocator) stop() {
	log.Info().Msg("stopping allocator app")
	a.cancel()
	log.Info().Msg("allocator app has been stopped")
}

// IsAlive is called by liveness probes to check app health.
func (a *Allocator) IsAlive(_ context.Context) bool {
	if !a.server.IsAlive() {
		log.Info().Msg("http server has gone away")
		return false
	}
	return true
}

// runTelemetry periodically publishes cache stats to prometheus and, in debug
// mode, logs a state summary.
func (a *Allocator) runTelemetry() {
	go func() {
		t := utils.NewTicker(a.ctx, 5*time.Second)
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-t:
				manager := a.runner.Manager()
				a.meter.Report(manager.Stats())

				if a.cfg.IsDebugOn() {
					var m runtime.MemStats
					runtime.ReadMemStats(&m)
					log.Debug().Msgf("[allocator]: budget: %d batches, sys [alloc: %s, sysAlloc: %s, routines: %d]",
						manager.TotalCapacity(), utils.FmtMemory(uintptr(m.Alloc)), utils.FmtMemory(uintptr(m.Sys)),
						runtime.NumGoroutine())
				}
			}
		}
	}()
}
