package datastructure

import (
	"math"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
)

type Index uint32

const (
	INVALID_INDEX Index = math.MaxUint32
)

// Edge is a directed connection from its owning vertex to head. cost is in seconds.
type Edge struct {
	head Index
	cost float64
	// departure is the unix second a scheduled ride leaves the owning vertex. 0 for edges
	// that can be taken at any time (transfers, anchors).
	departure float64
	info      *EdgeInfo
}

func NewEdge(head Index, cost float64, info *EdgeInfo) Edge {
	return Edge{
		head: head,
		cost: cost,
		info: info,
	}
}

func NewScheduledEdge(head Index, departure, ride float64, info *EdgeInfo) Edge {
	return Edge{
		head:      head,
		cost:      ride,
		departure: departure,
		info:      info,
	}
}

func (e *Edge) GetHead() Index {
	return e.head
}

func (e *Edge) GetCost() float64 {
	return e.cost
}

func (e *Edge) GetDeparture() float64 {
	return e.departure
}

func (e *Edge) IsScheduled() bool {
	return e.departure > 0
}

func (e *Edge) GetInfo() *EdgeInfo {
	return e.info
}

// ArrivalFrom returns the arrival at the head when the owning vertex is reached at arrival.
// a scheduled edge arrives at departure+cost as long as the departure is still catchable.
func (e *Edge) ArrivalFrom(arrival float64) float64 {
	if !e.IsScheduled() {
		return arrival + e.cost
	}
	if e.departure < arrival {
		return pkg.INF_WEIGHT
	}
	return e.departure + e.cost
}

// Vertex is a station-at-search-time node. vertices live in a Graph arena and refer
// to each other by Index only.
type Vertex struct {
	id   Index
	name string
	stop *Stop

	tentativeArrival float64
	visited          bool
	discovered       bool
	predecessor      Index

	edges []Edge

	sourceAnchor bool
	sinkAnchor   bool
}

func NewVertex(id Index, name string, stop *Stop) *Vertex {
	return &Vertex{
		id:               id,
		name:             name,
		stop:             stop,
		tentativeArrival: pkg.INF_WEIGHT,
		predecessor:      INVALID_INDEX,
		edges:            make([]Edge, 0, 2),
	}
}

func (v *Vertex) GetID() Index {
	return v.id
}

func (v *Vertex) GetName() string {
	return v.name
}

// GetStop returns nil for the virtual anchors.
func (v *Vertex) GetStop() *Stop {
	return v.stop
}

func (v *Vertex) HasStop() bool {
	return v.stop != nil
}

func (v *Vertex) GetTentativeArrival() float64 {
	return v.tentativeArrival
}

func (v *Vertex) SetTentativeArrival(arrival float64) {
	v.tentativeArrival = arrival
}

func (v *Vertex) IsReached() bool {
	return v.tentativeArrival < pkg.INF_WEIGHT
}

func (v *Vertex) IsVisited() bool {
	return v.visited
}

func (v *Vertex) MarkVisited() {
	v.visited = true
}

func (v *Vertex) IsDiscovered() bool {
	return v.discovered
}

func (v *Vertex) MarkDiscovered() {
	v.discovered = true
}

func (v *Vertex) GetPredecessor() Index {
	return v.predecessor
}

func (v *Vertex) GetEdges() []Edge {
	return v.edges
}

func (v *Vertex) OutDegree() int {
	return len(v.edges)
}

func (v *Vertex) IsSourceAnchor() bool {
	return v.sourceAnchor
}

func (v *Vertex) IsSinkAnchor() bool {
	return v.sinkAnchor
}

func (v *Vertex) IsAnchor() bool {
	return v.sourceAnchor || v.sinkAnchor
}

// GetEdgeTo returns the edge from v to head, if any.
func (v *Vertex) GetEdgeTo(head Index) (Edge, bool) {
	for _, e := range v.edges {
		if e.head == head {
			return e, true
		}
	}
	return Edge{}, false
}

// AddDirectedEdge inserts e, replacing the edge that already points to the same head.
func (v *Vertex) AddDirectedEdge(e Edge) {
	for i := range v.edges {
		if v.edges[i].head == e.head {
			v.edges = append(v.edges[:i], v.edges[i+1:]...)
			break
		}
	}
	v.edges = append(v.edges, e)
}

// Graph is the per-request vertex arena.
type Graph struct {
	vertices  []*Vertex
	stopIndex map[string]Index

	numRelaxations int
}

func NewGraph(capacity int) *Graph {
	return &Graph{
		vertices:  make([]*Vertex, 0, capacity+2),
		stopIndex: make(map[string]Index, capacity),
	}
}

// AddStopVertex creates the vertex of stop, or returns the existing one.
func (g *Graph) AddStopVertex(stop Stop) Index {
	if id, ok := g.stopIndex[stop.ID]; ok {
		return id
	}
	id := Index(len(g.vertices))
	s := stop
	g.vertices = append(g.vertices, NewVertex(id, stop.Name, &s))
	g.stopIndex[stop.ID] = id
	return id
}

func (g *Graph) AddSourceAnchor(name string) Index {
	id := Index(len(g.vertices))
	v := NewVertex(id, name, nil)
	v.sourceAnchor = true
	g.vertices = append(g.vertices, v)
	return id
}

func (g *Graph) AddSinkAnchor(name string) Index {
	id := Index(len(g.vertices))
	v := NewVertex(id, name, nil)
	v.sinkAnchor = true
	g.vertices = append(g.vertices, v)
	return id
}

func (g *Graph) GetVertex(id Index) *Vertex {
	return g.vertices[id]
}

func (g *Graph) GetVertices() []*Vertex {
	return g.vertices
}

func (g *Graph) VertexOfStop(stopID string) (Index, bool) {
	id, ok := g.stopIndex[stopID]
	return id, ok
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices)
}

// NumRelaxations counts every edge examined by RelaxNeighbors.
func (g *Graph) NumRelaxations() int {
	return g.numRelaxations
}

func (g *Graph) AddDirectedEdge(u, v Index, cost float64, info *EdgeInfo) {
	g.vertices[u].AddDirectedEdge(NewEdge(v, cost, info))
}

func (g *Graph) AddScheduledEdge(u, v Index, departure, ride float64, info *EdgeInfo) {
	g.vertices[u].AddDirectedEdge(NewScheduledEdge(v, departure, ride, info))
}

func (g *Graph) AddUndirectedEdge(u, v Index, cost float64, info *EdgeInfo) {
	g.AddDirectedEdge(u, v, cost, info)
	g.AddDirectedEdge(v, u, cost, info)
}

/*
RelaxNeighbors relaxes every edge of u whose head is not visited yet.
touched: heads that were at +inf before this call and are reached now, they have to enter the frontier.
improved: heads that were already reached and got a better tentative arrival.
*/
func (g *Graph) RelaxNeighbors(u Index) (touched []Index, improved []Index) {
	uv := g.vertices[u]
	for i := range uv.edges {
		e := &uv.edges[i]
		w := g.vertices[e.head]
		if w.visited {
			continue
		}
		g.numRelaxations++

		wasReached := w.IsReached()
		candidate := e.ArrivalFrom(uv.tentativeArrival)
		if candidate >= w.tentativeArrival {
			continue
		}

		w.tentativeArrival = candidate
		w.predecessor = u
		if wasReached {
			improved = append(improved, w.id)
		} else {
			touched = append(touched, w.id)
		}
	}
	return touched, improved
}

// PathTo walks the predecessor links back from t.
func (g *Graph) PathTo(t Index) []Index {
	path := make([]Index, 0, 8)
	for cur := t; cur != INVALID_INDEX; cur = g.vertices[cur].predecessor {
		path = append(path, cur)
	}
	return util.ReverseG(path)
}
