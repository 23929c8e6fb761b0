package routing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const t0 = 1700000000.0

type staticDiscoverer struct {
	mu    sync.Mutex
	edges map[string][]DiscoveredEdge
	calls map[string]int
	fail  map[string]error
}

func newStaticDiscoverer() *staticDiscoverer {
	return &staticDiscoverer{
		edges: make(map[string][]DiscoveredEdge),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (d *staticDiscoverer) addEdge(from, to string, cost float64) {
	d.edges[from] = append(d.edges[from], DiscoveredEdge{ToStopID: to, Cost: cost})
}

func (d *staticDiscoverer) Discover(_ context.Context, q Query) (Result, error) {
	d.mu.Lock()
	d.calls[q.Stop.ID]++
	d.mu.Unlock()
	if err := d.fail[q.Stop.ID]; err != nil {
		return Result{}, err
	}
	return Result{Vertex: q.Vertex, Edges: d.edges[q.Stop.ID]}, nil
}

func stopID(i int) string {
	return fmt.Sprintf("S%d", i)
}

func buildGraph(n int) *da.Graph {
	g := da.NewGraph(n)
	for i := 0; i < n; i++ {
		g.AddStopVertex(da.NewStop(stopID(i), stopID(i), 0, 0))
	}
	return g
}

func stopIDs(g *da.Graph, path []da.Index) []string {
	ids := make([]string, len(path))
	for i, v := range path {
		ids[i] = g.GetVertex(v).GetStop().ID
	}
	return ids
}

func allOptions() []Options {
	out := []Options{}
	for _, kind := range []pkg.FrontierKind{pkg.SORTED_LIST_FRONTIER, pkg.HEAP_FRONTIER} {
		opts := DefaultOptions()
		opts.Frontier = kind
		out = append(out, opts)
	}
	return out
}

func TestShortestPathLinear(t *testing.T) {
	for _, opts := range allOptions() {
		t.Run(opts.Frontier.String(), func(t *testing.T) {
			g := buildGraph(3)
			disc := newStaticDiscoverer()
			disc.addEdge("S0", "S1", 5)
			disc.addEdge("S1", "S2", 10)

			fs := NewFrontierSearch(g, disc, zap.NewNop(), opts)
			path, found, err := fs.ShortestPath(context.Background(), 0, 2, t0)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, []string{"S0", "S1", "S2"}, stopIDs(g, path))
			assert.Equal(t, t0+15, g.GetVertex(2).GetTentativeArrival())
		})
	}
}

func TestShortestPathSameVertex(t *testing.T) {
	g := buildGraph(2)
	disc := newStaticDiscoverer()
	disc.addEdge("S0", "S1", 5)

	fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
	path, found, err := fs.ShortestPath(context.Background(), 0, 0, t0)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, path)
	assert.Equal(t, 0, g.NumRelaxations())
	assert.Empty(t, disc.calls)
}

func TestShortestPathNoPath(t *testing.T) {
	g := buildGraph(3)
	disc := newStaticDiscoverer()
	disc.addEdge("S1", "S2", 1)

	fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
	path, found, err := fs.ShortestPath(context.Background(), 0, 2, t0)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, path)
}

func TestDiscoveryOncePerVertex(t *testing.T) {
	// S3 is touched from S1 and again from S2 in a later round
	g := buildGraph(5)
	disc := newStaticDiscoverer()
	disc.addEdge("S0", "S1", 1)
	disc.addEdge("S0", "S2", 2)
	disc.addEdge("S1", "S3", 10)
	disc.addEdge("S2", "S3", 1)
	disc.addEdge("S3", "S4", 1)
	disc.addEdge("S3", "S0", 1)

	fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
	path, found, err := fs.ShortestPath(context.Background(), 0, 4, t0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"S0", "S2", "S3", "S4"}, stopIDs(g, path))
	assert.Equal(t, t0+4, g.GetVertex(4).GetTentativeArrival())

	for id, n := range disc.calls {
		assert.Equal(t, 1, n, "stop %s discovered %d times", id, n)
	}
	assert.Len(t, disc.calls, 5)
}

func TestDiscoveryFailureAbortsSearch(t *testing.T) {
	cause := errors.New("connection reset")
	g := buildGraph(3)
	disc := newStaticDiscoverer()
	disc.addEdge("S0", "S1", 1)
	disc.addEdge("S1", "S2", 1)
	disc.fail["S1"] = cause

	fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
	path, found, err := fs.ShortestPath(context.Background(), 0, 2, t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiscoveryFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrCancelled)
	assert.False(t, found)
	assert.Nil(t, path)
}

func TestCancelledSearch(t *testing.T) {
	g := buildGraph(3)
	ctx, cancel := context.WithCancel(context.Background())

	disc := DiscoverFunc(func(ctx context.Context, q Query) (Result, error) {
		if q.Stop.ID == "S1" {
			cancel()
			<-ctx.Done()
			return Result{}, ctx.Err()
		}
		return Result{Vertex: q.Vertex, Edges: []DiscoveredEdge{{ToStopID: "S1", Cost: 1}}}, nil
	})

	fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
	_, found, err := fs.ShortestPath(ctx, 0, 2, t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrDiscoveryFailure)
	assert.False(t, found)
}

func TestCancelledBeforeStart(t *testing.T) {
	g := buildGraph(2)
	disc := newStaticDiscoverer()
	disc.addEdge("S0", "S1", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
	_, _, err := fs.ShortestPath(ctx, 0, 1, t0)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestScheduledEdgesWaitForDeparture(t *testing.T) {
	// S0 -> S1 walking 60s, S0 -> S1 by a ride leaving at t0+300 taking 30s: walking wins.
	// S1 -> S2 only by ride leaving at t0+100 taking 50s.
	g := buildGraph(3)
	disc := newStaticDiscoverer()
	disc.edges["S0"] = []DiscoveredEdge{{ToStopID: "S1", Cost: 60}}
	disc.edges["S1"] = []DiscoveredEdge{{ToStopID: "S2", Cost: 50, Departure: t0 + 100}}

	fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
	path, found, err := fs.ShortestPath(context.Background(), 0, 2, t0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"S0", "S1", "S2"}, stopIDs(g, path))
	assert.Equal(t, t0+150, g.GetVertex(2).GetTentativeArrival())
}

// bellmanFord relabels every vertex until nothing changes.
func bellmanFord(n int, edges map[string][]DiscoveredEdge, s int) []float64 {
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = pkg.INF_WEIGHT
	}
	dist[s] = t0
	for round := 0; round < n; round++ {
		changed := false
		for u := 0; u < n; u++ {
			if dist[u] >= pkg.INF_WEIGHT {
				continue
			}
			for _, e := range edges[stopID(u)] {
				var v int
				fmt.Sscanf(e.ToStopID, "S%d", &v)
				if dist[u]+e.Cost < dist[v] {
					dist[v] = dist[u] + e.Cost
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return dist
}

func randomDiscoverer(rng *rand.Rand, n int) *staticDiscoverer {
	disc := newStaticDiscoverer()
	for u := 0; u < n; u++ {
		seen := map[int]bool{u: true}
		deg := rng.Intn(4)
		for k := 0; k < deg; k++ {
			v := rng.Intn(n)
			if seen[v] {
				continue
			}
			seen[v] = true
			disc.addEdge(stopID(u), stopID(v), float64(rng.Intn(20)))
		}
	}
	return disc
}

func TestShortestPathMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := 3 + rng.Intn(12)
		disc := randomDiscoverer(rng, n)
		target := 1 + rng.Intn(n-1)
		expected := bellmanFord(n, disc.edges, 0)

		var paths [][]string
		for _, opts := range allOptions() {
			g := buildGraph(n)
			popped := map[da.Index]float64{}
			opts.OnVisit = func(v *da.Vertex) {
				popped[v.GetID()] = v.GetTentativeArrival()
			}
			fs := NewFrontierSearch(g, disc, zap.NewNop(), opts)
			path, found, err := fs.ShortestPath(context.Background(), 0, da.Index(target), t0)
			require.NoError(t, err)

			if expected[target] >= pkg.INF_WEIGHT {
				require.False(t, found, "round %d", round)
				paths = append(paths, nil)
				continue
			}
			require.True(t, found, "round %d", round)
			assert.Equal(t, expected[target], g.GetVertex(da.Index(target)).GetTentativeArrival(), "round %d", round)

			// every path edge exists and explains the arrival delta
			for i := 1; i < len(path); i++ {
				e, ok := g.GetVertex(path[i-1]).GetEdgeTo(path[i])
				require.True(t, ok)
				assert.Equal(t, g.GetVertex(path[i]).GetTentativeArrival(),
					e.ArrivalFrom(g.GetVertex(path[i-1]).GetTentativeArrival()))
			}

			// visited vertices never change after being popped
			for v, arr := range popped {
				assert.Equal(t, arr, g.GetVertex(v).GetTentativeArrival())
				assert.Equal(t, expected[v], arr, "popped vertex %d must be final", v)
			}
			paths = append(paths, stopIDs(g, path))
		}
		assert.Equal(t, paths[0], paths[1], "frontier implementations disagree in round %d", round)
	}
}

func TestWithoutReorderNeverBeatsOptimum(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 100; round++ {
		n := 3 + rng.Intn(10)
		disc := randomDiscoverer(rng, n)
		expected := bellmanFord(n, disc.edges, 0)

		g := buildGraph(n)
		opts := DefaultOptions()
		opts.ReorderOnImprove = false
		fs := NewFrontierSearch(g, disc, zap.NewNop(), opts)
		_, found, err := fs.ShortestPath(context.Background(), 0, da.Index(n-1), t0)
		require.NoError(t, err)
		if found {
			assert.GreaterOrEqual(t, g.GetVertex(da.Index(n-1)).GetTentativeArrival(), expected[n-1])
		}
	}
}

func TestIdempotentSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	disc := randomDiscoverer(rng, 12)

	run := func() ([]string, float64) {
		g := buildGraph(12)
		fs := NewFrontierSearch(g, disc, zap.NewNop(), DefaultOptions())
		path, _, err := fs.ShortestPath(context.Background(), 0, 11, t0)
		require.NoError(t, err)
		return stopIDs(g, path), g.GetVertex(11).GetTentativeArrival()
	}

	p1, a1 := run()
	p2, a2 := run()
	assert.Equal(t, p1, p2)
	assert.Equal(t, a1, a2)
}
