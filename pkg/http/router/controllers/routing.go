package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine/routing"
	helper "github.com/lintang-b-s/navigatorx-transit/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"go.uber.org/zap"
)

type routingAPI struct {
	routeService RouteService
	validator    *requestValidator
	hub          *Hub
	log          *zap.Logger
}

func New(routeService RouteService, hub *Hub, log *zap.Logger) *routingAPI {
	return &routingAPI{
		routeService: routeService,
		validator:    newRequestValidator(),
		hub:          hub,
		log:          log,
	}
}

func (api *routingAPI) Routes(group *helper.RouteGroup) {
	group.GET("/stops", api.stops)
	group.GET("/route", api.startRoute)
	group.GET("/route/updates/:id", api.routeUpdates)
	group.GET("/route/stream", api.streamRoute)
	group.GET("/computeRoute", api.computeRoute)
}

// parseRouteRequest reads start, stop and departure (RFC3339, now when absent) from the query.
func (api *routingAPI) parseRouteRequest(r *http.Request) (routeRequest, error) {
	query := r.URL.Query()
	request := routeRequest{
		Start:     strings.TrimSpace(query.Get("start")),
		Stop:      strings.TrimSpace(query.Get("stop")),
		Departure: time.Now(),
	}
	if dep := query.Get("departure"); dep != "" {
		t, err := time.Parse(time.RFC3339, dep)
		if err != nil {
			return request, errors.New("departure must be a RFC3339 timestamp")
		}
		request.Departure = t
	}
	if err := api.validator.Struct(request); err != nil {
		return request, err
	}
	return request, nil
}

// stops godoc
//
//	@Summary	stops whose name contains name, exact matches first
//	@Param		name	query	string	true	"station name"
//	@Param		limit	query	int		false	"maximum number of stops"
//	@Produce	json
//	@Router		/stops [get]
func (api *routingAPI) stops(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	request := stopsRequest{Name: strings.TrimSpace(query.Get("name"))}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			api.BadRequestResponse(w, r, errors.New("limit must be a valid int"))
			return
		}
		request.Limit = limit
	}
	if err := api.validator.Struct(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	stops, err := api.routeService.SearchStops(request.Name, request.Limit)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewStopsResponse(stops)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// startRoute godoc
//
//	@Summary	start a route search, poll it with /route/updates/{id}
//	@Param		start		query	string	true	"start station name"
//	@Param		stop		query	string	true	"destination station name"
//	@Param		departure	query	string	false	"RFC3339 departure, now when absent"
//	@Produce	json
//	@Router		/route [get]
func (api *routingAPI) startRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request, err := api.parseRouteRequest(r)
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	id, search, err := api.routeService.StartSearch(request.Start, request.Stop, request.Departure)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	resp := startRouteResponse{
		ID:     id,
		Values: NewStopsResponse(search.Snapshot()),
		Done:   false,
	}
	if err := api.writeJSON(w, http.StatusOK, resp, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// routeUpdates godoc
//
//	@Summary	progress of a route search; a finished search is forgotten once reported
//	@Param		id	path	string	true	"search id"
//	@Produce	json
//	@Router		/route/updates/{id} [get]
func (api *routingAPI) routeUpdates(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	update, err := api.routeService.Updates(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, NewRouteUpdatesResponse(update), nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// computeRoute godoc
//
//	@Summary	earliest arrival route between two stations
//	@Param		start		query	string	true	"start station name"
//	@Param		stop		query	string	true	"destination station name"
//	@Param		departure	query	string	false	"RFC3339 departure, now when absent"
//	@Produce	json
//	@Router		/computeRoute [get]
func (api *routingAPI) computeRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request, err := api.parseRouteRequest(r)
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	route, err := api.routeService.ComputeRoute(r.Context(), request.Start, request.Stop, request.Departure)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewRouteResponse(route)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

/*
streamRoute upgrades to a websocket and sends two text frames: the snapshot of the vertex set
as soon as it is built, then the route or the error.
*/
func (api *routingAPI) streamRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	request, err := api.parseRouteRequest(r)
	if err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err))
		return
	}
	// deadlines of the http server still apply to the hijacked connection
	_ = conn.SetDeadline(time.Time{})

	stream := api.hub.Open(r.Context(), conn)
	defer api.hub.Close(stream)

	search, cancel, err := api.routeService.StreamRoute(stream.Context(), request.Start, request.Stop, request.Departure)
	if err != nil {
		api.writeStreamError(stream, err)
		return
	}
	defer cancel()

	if err := stream.send(streamFrame{Type: frameSnapshot, Values: NewStopsResponse(search.Snapshot())}); err != nil {
		api.log.Info("stream write error", zap.Error(err))
		return
	}

	<-search.Done()
	if stream.Context().Err() != nil {
		api.log.Info("route stream closed before the result", zap.Duration("open", time.Since(stream.opened)))
		return
	}
	route, err := search.Result()
	if err != nil {
		api.writeStreamError(stream, fmt.Errorf("route search: %w", err))
		return
	}
	resp := NewRouteResponse(route)
	if err := stream.send(streamFrame{Type: frameResult, Data: &resp, TimeTaken: search.Elapsed().Seconds()}); err != nil {
		api.log.Info("stream write error", zap.Error(err), zap.Duration("open", time.Since(stream.opened)))
	}
}

func (api *routingAPI) writeStreamError(stream *RouteStream, err error) {
	status := statusCodeOf(err)
	msg := errorMessage(err)
	switch {
	case errors.Is(err, routing.ErrCancelled):
		status, msg = http.StatusRequestTimeout, "route search was cancelled"
	case status == http.StatusInternalServerError:
		api.log.Error("route stream failed", zap.Error(err))
		msg = util.MessageInternalServerError
	}
	body := newErrorResponse(status, msg).Error
	if werr := stream.send(streamFrame{Type: frameError, Error: &errorFrameBody{Code: body.Code, Message: body.Message}}); werr != nil {
		api.log.Info("stream write error", zap.Error(werr))
	}
}
