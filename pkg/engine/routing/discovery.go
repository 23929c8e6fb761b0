package routing

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"golang.org/x/sync/errgroup"
)

// Query asks for the outgoing edges of a vertex reached at At (unix seconds).
type Query struct {
	Vertex da.Index
	Stop   da.Stop
	At     float64
}

// DiscoveredEdge is an outgoing edge found by a Discoverer, addressed by stop id.
// edges to stops outside the request's vertex set are dropped when applied.
type DiscoveredEdge struct {
	ToStopID string
	// Cost in seconds. for scheduled edges this is the in-vehicle time.
	Cost float64
	// Departure unix seconds of a scheduled ride, 0 otherwise.
	Departure  float64
	Undirected bool
	Info       *da.EdgeInfo
}

type Result struct {
	Vertex da.Index
	Edges  []DiscoveredEdge
}

// Discoverer fetches the outgoing edges of one vertex. it must not touch the graph,
// the search applies the result after the whole batch has returned.
type Discoverer interface {
	Discover(ctx context.Context, q Query) (Result, error)
}

// BatchDiscoverer answers a whole frontier batch at once. it must be observably
// equivalent to calling Discover for every query.
type BatchDiscoverer interface {
	Discoverer
	DiscoverBatch(ctx context.Context, qs []Query) ([]Result, error)
}

// NoopDiscoverer is used for the virtual anchors, their edges are fixed when the request is built.
type NoopDiscoverer struct{}

func (NoopDiscoverer) Discover(_ context.Context, q Query) (Result, error) {
	return Result{Vertex: q.Vertex}, nil
}

// DiscoverFunc adapts a function to Discoverer.
type DiscoverFunc func(ctx context.Context, q Query) (Result, error)

func (f DiscoverFunc) Discover(ctx context.Context, q Query) (Result, error) {
	return f(ctx, q)
}

/*
ScheduleDiscoverer asks the schedule index for the next departure of the vertex's stop, giving at most
one ride edge to the stop the trip serves next, plus the stop's foot transfers.

with pkg.TRANSFERS_PRELOADED the transfers are not fetched here: the route orchestrator adds every
transfer of the vertex set before the search starts.
*/
type ScheduleDiscoverer struct {
	schedule               ScheduleIndex
	transfers              TransferTable
	mode                   pkg.TransferMode
	defaultTransferSeconds float64
	maxConcurrent          int
}

func NewScheduleDiscoverer(schedule ScheduleIndex, transfers TransferTable, mode pkg.TransferMode,
	defaultTransferSeconds float64, maxConcurrent int) *ScheduleDiscoverer {
	if defaultTransferSeconds <= 0 {
		defaultTransferSeconds = pkg.DEFAULT_TRANSFER_SECONDS
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ScheduleDiscoverer{
		schedule:               schedule,
		transfers:              transfers,
		mode:                   mode,
		defaultTransferSeconds: defaultTransferSeconds,
		maxConcurrent:          maxConcurrent,
	}
}

func (d *ScheduleDiscoverer) GetTransferMode() pkg.TransferMode {
	return d.mode
}

// TransferCost returns the minimum transfer time of t in seconds.
func (d *ScheduleDiscoverer) TransferCost(t da.Transfer) float64 {
	if t.MinTransferTime > 0 {
		return t.MinTransferTime
	}
	return d.defaultTransferSeconds
}

func (d *ScheduleDiscoverer) Discover(ctx context.Context, q Query) (Result, error) {
	dep, ok, err := d.schedule.NextDeparture(ctx, q.Stop.ID, util.UnixSecondsToTime(q.At))
	if err != nil {
		return Result{}, fmt.Errorf("next departure of stop %s: %w", q.Stop.ID, err)
	}
	res := Result{Vertex: q.Vertex}
	if ok {
		res.Edges = appendRide(res.Edges, dep)
	}

	if d.mode != pkg.TRANSFERS_PER_STOP {
		return res, nil
	}
	trs, err := d.transfers.TransfersForStop(ctx, q.Stop.ID)
	if err != nil {
		return Result{}, fmt.Errorf("transfers of stop %s: %w", q.Stop.ID, err)
	}
	res.Edges = d.appendTransfers(res.Edges, q.Stop.ID, trs)
	return res, nil
}

// DiscoverBatch uses one NextDepartures round-trip when the schedule index supports it.
func (d *ScheduleDiscoverer) DiscoverBatch(ctx context.Context, qs []Query) ([]Result, error) {
	batchIndex, ok := d.schedule.(BatchScheduleIndex)
	if !ok {
		return d.discoverEach(ctx, qs)
	}

	queries := make([]da.DepartureQuery, len(qs))
	for i, q := range qs {
		queries[i] = da.DepartureQuery{StopID: q.Stop.ID, After: util.UnixSecondsToTime(q.At)}
	}
	deps, err := batchIndex.NextDepartures(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("next departures of %d stops: %w", len(qs), err)
	}
	if len(deps) != len(qs) {
		return nil, fmt.Errorf("next departures: got %d results for %d queries", len(deps), len(qs))
	}

	results := make([]Result, len(qs))
	for i, q := range qs {
		results[i].Vertex = q.Vertex
		if deps[i].Found {
			results[i].Edges = appendRide(results[i].Edges, deps[i].Departure)
		}
	}
	if d.mode != pkg.TRANSFERS_PER_STOP {
		return results, nil
	}

	// transfer lookups of the batch run concurrently, each goroutine owns results[i]
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrent)
	for i, q := range qs {
		i, q := i, q
		g.Go(func() error {
			trs, err := d.transfers.TransfersForStop(gctx, q.Stop.ID)
			if err != nil {
				return fmt.Errorf("transfers of stop %s: %w", q.Stop.ID, err)
			}
			results[i].Edges = d.appendTransfers(results[i].Edges, q.Stop.ID, trs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *ScheduleDiscoverer) discoverEach(ctx context.Context, qs []Query) ([]Result, error) {
	results := make([]Result, len(qs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConcurrent)
	for i, q := range qs {
		i, q := i, q
		g.Go(func() error {
			res, err := d.Discover(gctx, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func appendRide(edges []DiscoveredEdge, dep da.Departure) []DiscoveredEdge {
	if !dep.HasNextStop() {
		return edges
	}
	return append(edges, DiscoveredEdge{
		ToStopID:  dep.NextStopID,
		Cost:      dep.RideSeconds(),
		Departure: util.TimeToUnixSeconds(dep.DepartureTime),
		Info:      da.NewRideInfo(dep),
	})
}

// appendTransfers orients every transfer touching stopID away from it. transfers are symmetric.
func (d *ScheduleDiscoverer) appendTransfers(edges []DiscoveredEdge, stopID string, trs []da.Transfer) []DiscoveredEdge {
	for _, t := range trs {
		other := t.ToStopID
		if other == stopID {
			other = t.FromStopID
		}
		if other == stopID {
			continue
		}
		edges = append(edges, DiscoveredEdge{
			ToStopID:   other,
			Cost:       d.TransferCost(t),
			Undirected: true,
			Info:       da.NewTransferInfo(),
		})
	}
	return edges
}
