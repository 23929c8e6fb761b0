package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-transit/pkg/geo"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"go.uber.org/zap"
)

const DEFAULT_STOP_SEARCH_LIMIT = 20

// Update is the state of a polled search.
type Update struct {
	Visited   []engine.VisitedStop
	Done      bool
	Route     *engine.Route
	Err       error
	TimeTaken time.Duration
}

type RouteService struct {
	log      *zap.Logger
	engine   RouteEngine
	stops    StopSearcher
	registry *SearchRegistry
	timeout  time.Duration
}

func NewRouteService(log *zap.Logger, engine RouteEngine, stops StopSearcher, registry *SearchRegistry,
	timeout time.Duration) *RouteService {
	return &RouteService{
		log:      log,
		engine:   engine,
		stops:    stops,
		registry: registry,
		timeout:  timeout,
	}
}

func (rs *RouteService) SearchStops(name string, limit int) ([]da.Stop, error) {
	if strings.TrimSpace(name) == "" {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "name is required")
	}
	if limit <= 0 {
		limit = DEFAULT_STOP_SEARCH_LIMIT
	}
	return rs.stops.SearchByName(name, limit), nil
}

/*
StartSearch starts a route search that outlives the request. it returns the id to poll with Updates
and the search, whose snapshot is already available.
*/
func (rs *RouteService) StartSearch(startName, endName string, departure time.Time) (string, *engine.Search, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	s, err := rs.engine.StartRoute(ctx, startName, endName, departure)
	if err != nil {
		cancel()
		return "", nil, rs.wrapSearchError(err, startName, endName)
	}
	id := rs.registry.Add(s, cancel)
	go func() {
		<-s.Done()
		cancel()
	}()
	return id, s, nil
}

// Updates reports the progress of search id. a finished search is forgotten once reported.
func (rs *RouteService) Updates(id string) (Update, error) {
	s, ok := rs.registry.Get(id)
	if !ok {
		return Update{}, util.WrapErrorf(nil, util.ErrNotFound, "search %s not found", id)
	}
	// done is read first so that a done update carries every visited stop
	done := s.IsDone()
	u := Update{
		Visited:   s.Progress(),
		Done:      done,
		TimeTaken: s.Elapsed(),
	}
	if done {
		route, err := s.Result()
		u.Route = route
		if err != nil {
			u.Err = rs.wrapSearchError(err, "", "")
		}
		rs.registry.Remove(id)
	}
	return u, nil
}

// ComputeRoute runs a search to completion within the request.
func (rs *RouteService) ComputeRoute(ctx context.Context, startName, endName string, departure time.Time) (*engine.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()
	route, err := rs.engine.FindRoute(ctx, startName, endName, departure)
	if err != nil {
		return nil, rs.wrapSearchError(err, startName, endName)
	}
	return route, nil
}

// StreamRoute starts a search bound to ctx. the caller must call the returned cancel func.
func (rs *RouteService) StreamRoute(ctx context.Context, startName, endName string, departure time.Time) (*engine.Search, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	s, err := rs.engine.StartRoute(ctx, startName, endName, departure)
	if err != nil {
		cancel()
		return nil, nil, rs.wrapSearchError(err, startName, endName)
	}
	return s, cancel, nil
}

func (rs *RouteService) wrapSearchError(err error, startName, endName string) error {
	switch {
	case errors.Is(err, routing.ErrCancelled):
		return util.WrapErrorf(err, util.ErrTimeout, "route search from %q to %q was cancelled", startName, endName)
	default:
		rs.log.Error("route search failed", zap.String("start", startName), zap.String("end", endName), zap.Error(err))
		return util.WrapErrorf(err, util.ErrInternalServerError, "%s", util.MessageInternalServerError)
	}
}

// RoutePolyline encodes the stops of route.
func RoutePolyline(route *engine.Route) string {
	if route == nil || !route.Found() {
		return ""
	}
	coords := make([]geo.Coordinate, 0, len(route.Path))
	for _, st := range route.Path {
		coords = append(coords, geo.NewCoordinate(st.Stop.Lat, st.Stop.Lon))
	}
	return geo.EncodePolyline(coords)
}
