package http

import (
	"context"
	"errors"

	http_router "github.com/lintang-b-s/navigatorx-transit/pkg/http/router"
	"github.com/lintang-b-s/navigatorx-transit/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/navigatorx-transit/pkg/http/server"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use serves the api with the settings of cfg and blocks until ctx is done.
func (s *Server) Use(
	ctx context.Context,
	cfg util.Config,
	routeService controllers.RouteService,
) error {
	config := http_server.Config{
		Port:           cfg.APIPort,
		Timeout:        cfg.APITimeout,
		UseRateLimit:   cfg.RateLimit,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}

	api := http_router.NewAPI(s.Log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Run(gctx, config, routeService)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
