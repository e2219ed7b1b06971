package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/transfer-cache/internal/allocator/api"
	"github.com/Borislavv/transfer-cache/internal/allocator/config"
	"github.com/Borislavv/transfer-cache/pkg/liveness"
	metricscontroller "github.com/Borislavv/transfer-cache/pkg/prometheus/metrics/controller"
	httpserver "github.com/Borislavv/transfer-cache/pkg/server"
	"github.com/Borislavv/transfer-cache/pkg/server/controller"
	"github.com/Borislavv/transfer-cache/pkg/server/middleware"
	"github.com/rs/zerolog/log"
)

var InitFailedErrorMessage = "[server] init. failed"

// Http interface exposes methods for starting and liveness probing.
type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer wraps the shared fasthttp server with this app's controllers.
type HttpServer struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg           *config.Config
	server        *httpserver.HTTP
	isServerAlive *atomic.Bool
}

func New(
	ctx context.Context,
	cfg *config.Config,
	stats api.StatsSource,
	probe liveness.Prober,
) (*HttpServer, error) {
	ctx, cancel := context.WithCancel(ctx)

	srv := &HttpServer{
		ctx:           ctx,
		cancel:        cancel,
		cfg:           cfg,
		isServerAlive: &atomic.Bool{},
	}

	server, err := httpserver.New(ctx, cfg, srv.controllers(stats, probe), srv.middlewares())
	if err != nil {
		cancel()
		log.Err(err).Msg(InitFailedErrorMessage)
		return nil, errors.New(InitFailedErrorMessage)
	}
	srv.server = server

	return srv, nil
}

// Start runs the HTTP server and blocks until it exits.
func (s *HttpServer) Start() {
	defer s.cancel()

	wg := &sync.WaitGroup{}
	defer wg.Wait()

	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		s.server.ListenAndServe()
	}()
}

// IsAlive returns true if the server is marked as alive.
func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

func (s *HttpServer) controllers(stats api.StatsSource, probe liveness.Prober) []controller.HttpController {
	list := []controller.HttpController{
		api.NewLivenessController(probe),
		api.NewStatsController(s.ctx, s.cfg, stats),
	}
	if s.cfg.IsPrometheusMetricsEnabled() {
		list = append(list, metricscontroller.NewPrometheusMetrics(s.ctx))
	}
	return list
}

func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	return []middleware.HttpMiddleware{
		/** exec 1st. */ middleware.NewApplicationJsonMiddleware(),
		/** exec 2nd. */ middleware.NewWatermarkMiddleware(s.ctx, s.cfg),
		/** exec 3rd. */ middleware.NewDuration(s.ctx, s.cfg),
	}
}
