package routing

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Frontier pkg.FrontierKind
	// ReorderOnImprove moves an enqueued vertex when a later relaxation improves its
	// tentative arrival. without it the vertex keeps the position of its first arrival.
	ReorderOnImprove bool
	// MaxConcurrentDiscovery bounds the fan-out of one discovery batch.
	MaxConcurrentDiscovery int
	// OnVisit is called with every vertex popped from the frontier, on the search goroutine.
	OnVisit func(v *da.Vertex)
}

func DefaultOptions() Options {
	return Options{
		Frontier:               pkg.SORTED_LIST_FRONTIER,
		ReorderOnImprove:       true,
		MaxConcurrentDiscovery: 16,
	}
}

/*
FrontierSearch is a time-dependent dijkstra over a graph that is discovered while the search runs.

the outgoing edges of a vertex depend on the instant it is reached, so they are fetched by a Discoverer
when the vertex first enters the frontier. all vertices entering the frontier in one relaxation round
form a batch, discovered concurrently; the loop waits for the whole batch before popping again, so every
vertex has its edges before it is popped.
*/
type FrontierSearch struct {
	graph      *da.Graph
	discoverer Discoverer
	frontier   da.Frontier
	opts       Options
	log        *zap.Logger

	numSettledNodes int
	numDiscovered   int
	numBatches      int
}

func NewFrontierSearch(graph *da.Graph, discoverer Discoverer, log *zap.Logger, opts Options) *FrontierSearch {
	if discoverer == nil {
		discoverer = NoopDiscoverer{}
	}
	if opts.MaxConcurrentDiscovery <= 0 {
		opts.MaxConcurrentDiscovery = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FrontierSearch{
		graph:      graph,
		discoverer: discoverer,
		frontier:   da.NewFrontier(opts.Frontier, graph.NumberOfVertices()),
		opts:       opts,
		log:        log,
	}
}

func (fs *FrontierSearch) GetNumSettledNodes() int {
	return fs.numSettledNodes
}

func (fs *FrontierSearch) GetNumDiscovered() int {
	return fs.numDiscovered
}

func (fs *FrontierSearch) GetNumBatches() int {
	return fs.numBatches
}

/*
ShortestPath returns the earliest-arrival path from s to t, s and t included, starting at initialArrival
(unix seconds). found is false when the frontier empties before t is popped; that is not an error.
errors are either ErrDiscoveryFailure or ErrCancelled, and no partial path is returned with them.
*/
func (fs *FrontierSearch) ShortestPath(ctx context.Context, s, t da.Index, initialArrival float64) ([]da.Index, bool, error) {
	if s == t {
		return []da.Index{}, false, nil
	}

	source := fs.graph.GetVertex(s)
	source.SetTentativeArrival(initialArrival)
	source.MarkVisited()

	// the source never enters through a relaxation round, discover it inline
	if err := fs.discover(ctx, []da.Index{s}); err != nil {
		return nil, false, err
	}
	fs.frontier.Push(s, initialArrival)

	for fs.frontier.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, cancelled(err)
		}

		u, _ := fs.frontier.PopMin()
		uVertex := fs.graph.GetVertex(u)
		uVertex.MarkVisited()
		fs.numSettledNodes++
		if fs.opts.OnVisit != nil {
			fs.opts.OnVisit(uVertex)
		}

		if u == t {
			return fs.graph.PathTo(t), true, nil
		}

		touched, improved := fs.graph.RelaxNeighbors(u)

		if fs.opts.ReorderOnImprove {
			for _, w := range improved {
				fs.frontier.Update(w, fs.graph.GetVertex(w).GetTentativeArrival())
			}
		}

		batch := make([]da.Index, 0, len(touched))
		for _, w := range touched {
			if fs.frontier.Contains(w) {
				continue
			}
			fs.frontier.Push(w, fs.graph.GetVertex(w).GetTentativeArrival())
			batch = append(batch, w)
		}

		if err := fs.discover(ctx, batch); err != nil {
			return nil, false, err
		}
	}

	fs.log.Debug("frontier exhausted without reaching the sink",
		zap.Int("settled", fs.numSettledNodes), zap.Int("discovered", fs.numDiscovered))
	return []da.Index{}, false, nil
}

func (fs *FrontierSearch) discovererFor(v *da.Vertex) Discoverer {
	if !v.HasStop() {
		return NoopDiscoverer{}
	}
	return fs.discoverer
}

// discover fetches the edges of every not yet discovered vertex in batch and applies them once all have returned.
func (fs *FrontierSearch) discover(ctx context.Context, batch []da.Index) error {
	queries := make([]Query, 0, len(batch))
	for _, v := range batch {
		vertex := fs.graph.GetVertex(v)
		if vertex.IsDiscovered() {
			continue
		}
		vertex.MarkDiscovered()
		fs.numDiscovered++
		if _, noop := fs.discovererFor(vertex).(NoopDiscoverer); noop {
			continue
		}
		queries = append(queries, Query{
			Vertex: v,
			Stop:   *vertex.GetStop(),
			At:     vertex.GetTentativeArrival(),
		})
	}
	if len(queries) == 0 {
		return nil
	}
	fs.numBatches++

	results, err := fs.runDiscovery(ctx, queries)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		return discoveryFailure(err)
	}

	for _, res := range results {
		fs.apply(res)
	}

	fs.log.Debug("discovered batch", zap.Int("size", len(queries)), zap.Int("batch", fs.numBatches))
	return nil
}

func (fs *FrontierSearch) runDiscovery(ctx context.Context, queries []Query) ([]Result, error) {
	if bd, ok := fs.discoverer.(BatchDiscoverer); ok {
		return bd.DiscoverBatch(ctx, queries)
	}

	results := make([]Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fs.opts.MaxConcurrentDiscovery)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			res, err := fs.discoverer.Discover(gctx, q)
			if err != nil {
				return fmt.Errorf("vertex %s (%s): %w", q.Stop.Name, q.Stop.ID, err)
			}
			res.Vertex = q.Vertex
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (fs *FrontierSearch) apply(res Result) {
	for _, e := range res.Edges {
		head, ok := fs.graph.VertexOfStop(e.ToStopID)
		if !ok || head == res.Vertex {
			// outside the stops between the two stations
			continue
		}
		switch {
		case e.Departure > 0:
			fs.graph.AddScheduledEdge(res.Vertex, head, e.Departure, e.Cost, e.Info)
		case e.Undirected:
			fs.graph.AddUndirectedEdge(res.Vertex, head, e.Cost, e.Info)
		default:
			fs.graph.AddDirectedEdge(res.Vertex, head, e.Cost, e.Info)
		}
	}
}
