package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/navigatorx-transit/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/navigatorx-transit/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/navigatorx-transit/pkg/http/server"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type API struct {
	log *zap.Logger
	hub *controllers.Hub
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log, hub: controllers.NewHub()}
}

//	@title			Navigatorx Transit API
//	@version		1.0
//	@description	Earliest arrival routing between stations of a public transit timetable.

//	@contact.name	Lintang Birda Saputra
//	@contact.url	_
//	@contact.email	lintang.birda.saputra@mail.ugm.ac.id

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Handler(config http_server.Config, routeService controllers.RouteService) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", REQUEST_ID_HEADER},
		ExposedHeaders:   []string{"Link", REQUEST_ID_HEADER},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)
	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)

	group := router_helper.NewRouteGroup(router, "/api")
	controllers.New(routeService, api.hub, api.log).Routes(group)

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Labels, Heartbeat("healthz"), Logger(api.log)}
	if config.UseRateLimit {
		mwChain = append(mwChain, Limit(config.RateLimitRPS, config.RateLimitBurst))
	}
	return alice.New(mwChain...).Then(router)
}

// Run serves the api until ctx is done or the server fails.
func (api *API) Run(ctx context.Context, config http_server.Config, routeService controllers.RouteService) error {
	api.log.Info("Run httprouter API")

	srv := http_server.New(ctx, api.Handler(config, routeService), config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		api.hub.CloseAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		api.log.Error("HTTP server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// hijacked websocket connections are not closed by Shutdown
		api.hub.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
