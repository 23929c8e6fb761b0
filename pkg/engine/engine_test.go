package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

type stubNetwork struct {
	mu         sync.Mutex
	stops      []da.Stop
	transfers  []da.Transfer
	edges      map[string][]routing.DiscoveredEdge
	discovered map[string]int
	dirCalls   int
	failStop   string
}

func newStubNetwork(stops ...da.Stop) *stubNetwork {
	return &stubNetwork{
		stops:      stops,
		edges:      make(map[string][]routing.DiscoveredEdge),
		discovered: make(map[string]int),
	}
}

func (n *stubNetwork) edge(from, to string, cost float64) {
	n.edges[from] = append(n.edges[from], routing.DiscoveredEdge{ToStopID: to, Cost: cost})
}

func (n *stubNetwork) ride(from, to string, departure time.Time, cost float64) {
	n.edges[from] = append(n.edges[from], routing.DiscoveredEdge{
		ToStopID:  to,
		Cost:      cost,
		Departure: float64(departure.Unix()),
	})
}

func (n *stubNetwork) ResolveStopsByName(_ context.Context, name string) ([]da.Stop, error) {
	n.mu.Lock()
	n.dirCalls++
	n.mu.Unlock()
	out := []da.Stop{}
	for _, s := range n.stops {
		if strings.EqualFold(s.Name, name) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (n *stubNetwork) StopsBetween(_ context.Context, _, _ da.Stop) ([]da.Stop, error) {
	n.mu.Lock()
	n.dirCalls++
	n.mu.Unlock()
	return n.stops, nil
}

func (n *stubNetwork) AllTransfers(_ context.Context) ([]da.Transfer, error) {
	return n.transfers, nil
}

func (n *stubNetwork) TransfersForStop(_ context.Context, stopID string) ([]da.Transfer, error) {
	out := []da.Transfer{}
	for _, t := range n.transfers {
		if t.FromStopID == stopID || t.ToStopID == stopID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (n *stubNetwork) Discover(ctx context.Context, q routing.Query) (routing.Result, error) {
	n.mu.Lock()
	n.discovered[q.Stop.ID]++
	n.mu.Unlock()
	if q.Stop.ID == n.failStop {
		return routing.Result{}, errors.New("schedule unavailable")
	}
	return routing.Result{Vertex: q.Vertex, Edges: n.edges[q.Stop.ID]}, nil
}

func (n *stubNetwork) totalDiscoveries() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, c := range n.discovered {
		total += c
	}
	return total
}

func preloadedConfig() Config {
	cfg := DefaultConfig()
	cfg.TransferMode = pkg.TRANSFERS_PRELOADED
	return cfg
}

func newStubEngine(n *stubNetwork, cfg Config) *Engine {
	return NewEngineWithDiscoverer(n, n, n, zap.NewNop(), cfg)
}

func stopIDs(route *Route) []string {
	ids := []string{}
	for _, s := range route.Stops() {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestFindRouteLinear(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("S1", "One", 0, 0),
		da.NewStop("S2", "Two", 0, 0),
		da.NewStop("S3", "Three", 0, 0),
	)
	n.edge("S1", "S2", 5)
	n.edge("S2", "S3", 10)

	for _, kind := range []pkg.FrontierKind{pkg.SORTED_LIST_FRONTIER, pkg.HEAP_FRONTIER} {
		t.Run(kind.String(), func(t *testing.T) {
			cfg := preloadedConfig()
			cfg.Frontier = kind
			route, err := newStubEngine(n, cfg).FindRoute(context.Background(), "One", "Three", t0)
			require.NoError(t, err)
			require.Equal(t, ROUTE_FOUND, route.Status)
			assert.Equal(t, []string{"S1", "S2", "S3"}, stopIDs(route))
			assert.Equal(t, 15.0, route.TotalSeconds())
			assert.True(t, route.Arrival.Equal(t0.Add(15*time.Second)))
		})
	}
}

func TestFindRouteKeepsSubSecondDeparture(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("S1", "One", 0, 0),
		da.NewStop("S2", "Two", 0, 0),
	)
	n.ride("S1", "S2", t0, 60)

	route, err := newStubEngine(n, preloadedConfig()).FindRoute(context.Background(), "One", "Two", t0)
	require.NoError(t, err)
	require.Equal(t, ROUTE_FOUND, route.Status)
	assert.True(t, route.Arrival.Equal(t0.Add(time.Minute)))

	// half a second after the departure the train is gone
	route, err = newStubEngine(n, preloadedConfig()).FindRoute(context.Background(), "One", "Two", t0.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, NO_PATH_FOUND, route.Status)
}

func TestFindRouteChoosesBestPlatform(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("S1", "X", 0, 0),
		da.NewStop("S1b", "X", 0, 0),
		da.NewStop("S2", "Y", 0, 0),
	)
	n.transfers = []da.Transfer{da.NewTransfer("S1", "S1b", 2)}
	n.edge("S1", "S2", 3)
	n.edge("S1b", "S2", 1)

	for _, mode := range []pkg.TransferMode{pkg.TRANSFERS_PRELOADED, pkg.TRANSFERS_PER_STOP} {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.TransferMode = mode
			route, err := newStubEngine(n, cfg).FindRoute(context.Background(), "X", "Y", t0)
			require.NoError(t, err)
			require.True(t, route.Found())
			assert.Equal(t, []string{"S1b", "S2"}, stopIDs(route))
			assert.Equal(t, 1.0, route.TotalSeconds())
		})
	}
}

func TestFindRouteNoPath(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("S1", "One", 0, 0),
		da.NewStop("S2", "Two", 0, 0),
	)

	route, err := newStubEngine(n, preloadedConfig()).FindRoute(context.Background(), "One", "Two", t0)
	require.NoError(t, err)
	assert.Equal(t, NO_PATH_FOUND, route.Status)
	assert.Empty(t, route.Path)
	assert.Equal(t, 0.0, route.TotalSeconds())
}

func TestFindRouteNoStops(t *testing.T) {
	n := newStubNetwork(da.NewStop("S1", "One", 0, 0))

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"unknown start", "Nowhere", "One"},
		{"unknown end", "One", "Nowhere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := newStubEngine(n, preloadedConfig()).FindRoute(context.Background(), tt.start, tt.end, t0)
			require.NoError(t, err)
			assert.Equal(t, NO_STOPS_FOUND, route.Status)
			assert.Empty(t, route.Path)
			assert.Equal(t, 0, n.totalDiscoveries())
		})
	}
}

func TestFindRouteSameStation(t *testing.T) {
	n := newStubNetwork(da.NewStop("S1", "One", 0, 0))

	route, err := newStubEngine(n, preloadedConfig()).FindRoute(context.Background(), "One", " one ", t0)
	require.NoError(t, err)
	assert.Equal(t, SAME_STATION, route.Status)
	assert.Empty(t, route.Path)
	assert.Equal(t, 0, route.NumRelaxations)
	assert.Equal(t, 0, n.dirCalls)
	assert.Equal(t, 0, n.totalDiscoveries())
}

func TestFindRouteDiscoversEachStopOnce(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("A", "A", 0, 0),
		da.NewStop("B", "B", 0, 0),
		da.NewStop("C", "C", 0, 0),
		da.NewStop("D", "D", 0, 0),
	)
	n.edge("A", "B", 1)
	n.edge("A", "C", 2)
	n.edge("B", "D", 10)
	n.edge("C", "D", 1)
	n.edge("D", "A", 1)

	route, err := newStubEngine(n, preloadedConfig()).FindRoute(context.Background(), "A", "D", t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, stopIDs(route))
	for id, c := range n.discovered {
		assert.Equal(t, 1, c, "stop %s", id)
	}
}

func TestFindRouteIsIdempotent(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("A", "A", 0, 0),
		da.NewStop("B", "B", 0, 0),
		da.NewStop("C", "C", 0, 0),
	)
	n.edge("A", "B", 4)
	n.edge("A", "C", 9)
	n.edge("B", "C", 4)
	e := newStubEngine(n, preloadedConfig())

	r1, err := e.FindRoute(context.Background(), "A", "C", t0)
	require.NoError(t, err)
	r2, err := e.FindRoute(context.Background(), "A", "C", t0)
	require.NoError(t, err)
	assert.Equal(t, r1.Path, r2.Path)
	assert.Equal(t, r1.TotalSeconds(), r2.TotalSeconds())
}

func TestFindRouteErrors(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("A", "A", 0, 0),
		da.NewStop("B", "B", 0, 0),
	)
	n.edge("A", "B", 1)

	t.Run("discovery failure", func(t *testing.T) {
		n.failStop = "A"
		defer func() { n.failStop = "" }()
		route, err := newStubEngine(n, preloadedConfig()).FindRoute(context.Background(), "A", "B", t0)
		assert.Nil(t, route)
		assert.ErrorIs(t, err, routing.ErrDiscoveryFailure)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		route, err := newStubEngine(n, preloadedConfig()).FindRoute(ctx, "A", "B", t0)
		assert.Nil(t, route)
		assert.ErrorIs(t, err, routing.ErrCancelled)
		assert.NotErrorIs(t, err, routing.ErrNoPathFound)
	})
}

func TestStartRouteProgress(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("A", "A", 0, 0),
		da.NewStop("B", "B", 0, 0),
		da.NewStop("C", "C", 0, 0),
	)
	n.edge("A", "B", 60)
	n.edge("B", "C", 60)

	s, err := newStubEngine(n, preloadedConfig()).StartRoute(context.Background(), "A", "C", t0)
	require.NoError(t, err)

	snapshot := s.Snapshot()
	ids := make([]string, len(snapshot))
	for i, st := range snapshot {
		ids[i] = st.ID
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"A", "B", "C"}, ids)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("search did not finish")
	}
	assert.True(t, s.IsDone())

	route, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, 120.0, route.TotalSeconds())

	progress := s.Progress()
	require.Len(t, progress, 3)
	assert.Equal(t, "A", progress[0].Stop.ID)
	assert.Equal(t, "C", progress[2].Stop.ID)
	assert.True(t, progress[2].Arrival.Equal(t0.Add(2*time.Minute)))
	assert.GreaterOrEqual(t, s.Elapsed(), time.Duration(0))
}

type stubSchedule struct {
	departures map[string][]da.Departure
}

func (s *stubSchedule) NextDeparture(_ context.Context, stopID string, after time.Time) (da.Departure, bool, error) {
	for _, d := range s.departures[stopID] {
		if !d.DepartureTime.Before(after) {
			return d, true, nil
		}
	}
	return da.Departure{}, false, nil
}

func ride(trip, from, to string, dep, arr time.Duration) da.Departure {
	return da.Departure{
		StopID:          from,
		TripID:          trip,
		RouteShortName:  "M" + trip,
		DepartureTime:   t0.Add(dep),
		NextStopID:      to,
		NextArrivalTime: t0.Add(arr),
	}
}

func TestFindRouteLegs(t *testing.T) {
	n := newStubNetwork(
		da.NewStop("A", "Alpha", 0, 0),
		da.NewStop("B", "Beta", 0, 0),
		da.NewStop("C", "Gamma", 0, 0),
		da.NewStop("D", "Delta", 0, 0),
	)
	n.transfers = []da.Transfer{da.NewTransfer("C", "D", 0)}
	sched := &stubSchedule{departures: map[string][]da.Departure{
		"A": {ride("1", "A", "B", 5*time.Minute, 10*time.Minute)},
		"B": {ride("1", "B", "C", 11*time.Minute, 15*time.Minute)},
	}}

	e := NewEngine(n, n, sched, zap.NewNop(), DefaultConfig())
	route, err := e.FindRoute(context.Background(), "Alpha", "Delta", t0)
	require.NoError(t, err)
	require.True(t, route.Found())
	assert.Equal(t, []string{"A", "B", "C", "D"}, stopIDs(route))

	require.Len(t, route.Legs, 2)
	rideLeg := route.Legs[0]
	assert.Equal(t, da.RIDE_EDGE, rideLeg.Kind)
	assert.Equal(t, "1", rideLeg.TripID)
	assert.Equal(t, "A", rideLeg.From().ID)
	assert.Equal(t, "C", rideLeg.To().ID)
	assert.Len(t, rideLeg.Stops, 3)
	assert.True(t, rideLeg.Departure.Equal(t0.Add(5*time.Minute)))
	assert.True(t, rideLeg.Arrival.Equal(t0.Add(15*time.Minute)))

	walk := route.Legs[1]
	assert.Equal(t, da.TRANSFER_EDGE, walk.Kind)
	assert.Equal(t, pkg.DEFAULT_TRANSFER_SECONDS, walk.Seconds())
	assert.Equal(t, float64(15*60+120), route.TotalSeconds())
}
