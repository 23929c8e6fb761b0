package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"go.uber.org/zap"
)

const (
	SOURCE_ANCHOR_NAME = "Start"
	SINK_ANCHOR_NAME   = "Stop"
)

type Config struct {
	Frontier               pkg.FrontierKind
	ReorderOnImprove       bool
	TransferMode           pkg.TransferMode
	MaxConcurrentDiscovery int
	DefaultTransferSeconds float64
	// Location is used to present the instants of a Route.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		Frontier:               pkg.SORTED_LIST_FRONTIER,
		ReorderOnImprove:       true,
		TransferMode:           pkg.TRANSFERS_PER_STOP,
		MaxConcurrentDiscovery: 16,
		DefaultTransferSeconds: pkg.DEFAULT_TRANSFER_SECONDS,
		Location:               time.UTC,
	}
}

// Engine answers earliest-arrival queries between two named stations. it holds no per-request state,
// every query builds its own vertex set.
type Engine struct {
	stops      routing.StopDirectory
	transfers  routing.TransferTable
	discoverer routing.Discoverer
	cfg        Config
	log        *zap.Logger
}

func NewEngine(stops routing.StopDirectory, transfers routing.TransferTable, schedule routing.ScheduleIndex,
	log *zap.Logger, cfg Config) *Engine {
	discoverer := routing.NewScheduleDiscoverer(schedule, transfers, cfg.TransferMode,
		cfg.DefaultTransferSeconds, cfg.MaxConcurrentDiscovery)
	return NewEngineWithDiscoverer(stops, transfers, discoverer, log, cfg)
}

// NewEngineWithDiscoverer lets the caller choose how vertices get their edges.
func NewEngineWithDiscoverer(stops routing.StopDirectory, transfers routing.TransferTable,
	discoverer routing.Discoverer, log *zap.Logger, cfg Config) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultTransferSeconds <= 0 {
		cfg.DefaultTransferSeconds = pkg.DEFAULT_TRANSFER_SECONDS
	}
	return &Engine{
		stops:      stops,
		transfers:  transfers,
		discoverer: discoverer,
		cfg:        cfg,
		log:        log,
	}
}

func (e *Engine) GetConfig() Config {
	return e.cfg
}

// ResolveStops returns every stop named name.
func (e *Engine) ResolveStops(ctx context.Context, name string) ([]da.Stop, error) {
	return e.stops.ResolveStopsByName(ctx, name)
}

// FindRoute returns the earliest-arrival journey from startName to endName leaving at departure.
// a route that could not be found is reported through Route.Status, errors are either
// routing.ErrDiscoveryFailure, routing.ErrCancelled or a failure of the stop directory.
func (e *Engine) FindRoute(ctx context.Context, startName, endName string, departure time.Time) (*Route, error) {
	s, err := e.StartRoute(ctx, startName, endName, departure)
	if err != nil {
		return nil, err
	}
	<-s.Done()
	return s.Result()
}

/*
StartRoute builds the vertex set of the request and starts the search in its own goroutine.
the returned Search already holds the snapshot of the constructed vertices; the route arrives later
through Done and Result.
*/
func (e *Engine) StartRoute(ctx context.Context, startName, endName string, departure time.Time) (*Search, error) {
	startedAt := time.Now()
	if sameStation(startName, endName) {
		return newFinishedSearch(startedAt, &Route{Status: SAME_STATION, Departure: departure.In(e.cfg.Location)}), nil
	}

	startStops, err := e.stops.ResolveStopsByName(ctx, startName)
	if err != nil {
		return nil, fmt.Errorf("resolve start %q: %w", startName, err)
	}
	endStops, err := e.stops.ResolveStopsByName(ctx, endName)
	if err != nil {
		return nil, fmt.Errorf("resolve end %q: %w", endName, err)
	}
	if len(startStops) == 0 || len(endStops) == 0 {
		e.log.Info("no stops found", zap.String("start", startName), zap.String("end", endName),
			zap.Int("startStops", len(startStops)), zap.Int("endStops", len(endStops)))
		return newFinishedSearch(startedAt, &Route{Status: NO_STOPS_FOUND, Departure: departure.In(e.cfg.Location)}), nil
	}

	req, err := e.buildRequest(ctx, startStops, endStops)
	if err != nil {
		return nil, err
	}

	s := newSearch(startedAt, req.snapshot())
	e.log.Info("route search started", zap.String("start", startName), zap.String("end", endName),
		zap.Time("departure", departure), zap.Int("vertices", req.graph.NumberOfVertices()))

	go e.run(ctx, s, req, departure)
	return s, nil
}

func (e *Engine) run(ctx context.Context, s *Search, req *request, departure time.Time) {
	opts := routing.Options{
		Frontier:               e.cfg.Frontier,
		ReorderOnImprove:       e.cfg.ReorderOnImprove,
		MaxConcurrentDiscovery: e.cfg.MaxConcurrentDiscovery,
		OnVisit:                s.visit,
	}
	fs := routing.NewFrontierSearch(req.graph, e.discoverer, e.log, opts)

	path, found, err := fs.ShortestPath(ctx, req.source, req.sink, util.TimeToUnixSeconds(departure))
	if err != nil {
		e.log.Error("route search failed", zap.Error(err), zap.Duration("elapsed", time.Since(s.startedAt)))
		s.finish(nil, err)
		return
	}

	route := &Route{Status: NO_PATH_FOUND, Departure: departure.In(e.cfg.Location)}
	if found {
		route = buildRoute(req.graph, trimAnchors(path), departure, e.cfg.Location)
	}
	route.NumRelaxations = req.graph.NumRelaxations()
	route.NumSettled = fs.GetNumSettledNodes()
	route.NumDiscovered = fs.GetNumDiscovered()

	e.log.Info("route search finished", zap.String("status", route.Status.String()),
		zap.Int("settled", route.NumSettled), zap.Int("discovered", route.NumDiscovered),
		zap.Int("batches", fs.GetNumBatches()), zap.Duration("elapsed", time.Since(s.startedAt)))
	s.finish(route, nil)
}

type request struct {
	graph  *da.Graph
	source da.Index
	sink   da.Index
}

func (r *request) snapshot() []da.Stop {
	stops := make([]da.Stop, 0, r.graph.NumberOfVertices())
	for _, v := range r.graph.GetVertices() {
		if v.HasStop() {
			stops = append(stops, *v.GetStop())
		}
	}
	return stops
}

// buildRequest creates one vertex per stop between the two stations, the virtual anchors and,
// with preloaded transfers, every transfer inside the vertex set.
func (e *Engine) buildRequest(ctx context.Context, startStops, endStops []da.Stop) (*request, error) {
	between, err := e.stops.StopsBetween(ctx, startStops[0], endStops[0])
	if err != nil {
		return nil, fmt.Errorf("stops between %s and %s: %w", startStops[0].ID, endStops[0].ID, err)
	}

	g := da.NewGraph(len(between) + len(startStops) + len(endStops))
	for _, stop := range between {
		g.AddStopVertex(stop)
	}
	// platforms of the two stations are part of the request even outside the window
	for _, stop := range startStops {
		g.AddStopVertex(stop)
	}
	for _, stop := range endStops {
		g.AddStopVertex(stop)
	}

	if e.cfg.TransferMode == pkg.TRANSFERS_PRELOADED {
		transfers, err := e.transfers.AllTransfers(ctx)
		if err != nil {
			return nil, fmt.Errorf("all transfers: %w", err)
		}
		for _, t := range transfers {
			from, okFrom := g.VertexOfStop(t.FromStopID)
			to, okTo := g.VertexOfStop(t.ToStopID)
			if !okFrom || !okTo || from == to {
				continue
			}
			cost := t.MinTransferTime
			if cost <= 0 {
				cost = e.cfg.DefaultTransferSeconds
			}
			g.AddUndirectedEdge(from, to, cost, da.NewTransferInfo())
		}
	}

	anchor := &da.EdgeInfo{Kind: da.ANCHOR_EDGE}
	source := g.AddSourceAnchor(SOURCE_ANCHOR_NAME)
	for _, stop := range startStops {
		v, _ := g.VertexOfStop(stop.ID)
		g.AddDirectedEdge(source, v, 0, anchor)
	}
	sink := g.AddSinkAnchor(SINK_ANCHOR_NAME)
	for _, stop := range endStops {
		v, _ := g.VertexOfStop(stop.ID)
		g.AddDirectedEdge(v, sink, 0, anchor)
	}

	return &request{graph: g, source: source, sink: sink}, nil
}

// trimAnchors drops the leading virtual source and the trailing virtual sink.
func trimAnchors(path []da.Index) []da.Index {
	if len(path) < 2 {
		return []da.Index{}
	}
	return path[1 : len(path)-1]
}

func sameStation(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
