package engine

import (
	"sync"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
)

// VisitedStop is a stop whose earliest arrival is final.
type VisitedStop struct {
	Stop    da.Stop
	Arrival time.Time
}

/*
Search is the handle of one running route query. it produces two results: the snapshot of the vertex set,
available as soon as StartRoute returns, and the route, available once Done is closed.
Progress lists the stops settled so far and may be polled while the search runs.
*/
type Search struct {
	startedAt time.Time
	stops     []da.Stop

	mu       sync.Mutex
	visited  []VisitedStop
	finished time.Time
	route    *Route
	err      error

	done chan struct{}
}

func newSearch(startedAt time.Time, stops []da.Stop) *Search {
	return &Search{
		startedAt: startedAt,
		stops:     stops,
		visited:   make([]VisitedStop, 0, len(stops)),
		done:      make(chan struct{}),
	}
}

func newFinishedSearch(startedAt time.Time, route *Route) *Search {
	s := newSearch(startedAt, []da.Stop{})
	s.finish(route, nil)
	return s
}

// visit runs on the search goroutine for every popped vertex.
func (s *Search) visit(v *da.Vertex) {
	if !v.HasStop() {
		return
	}
	s.mu.Lock()
	s.visited = append(s.visited, VisitedStop{
		Stop:    *v.GetStop(),
		Arrival: util.UnixSecondsToTime(v.GetTentativeArrival()),
	})
	s.mu.Unlock()
}

func (s *Search) finish(route *Route, err error) {
	s.mu.Lock()
	s.route = route
	s.err = err
	s.finished = time.Now()
	s.mu.Unlock()
	close(s.done)
}

// Snapshot returns every stop of the vertex set.
func (s *Search) Snapshot() []da.Stop {
	out := make([]da.Stop, len(s.stops))
	copy(out, s.stops)
	return out
}

func (s *Search) Progress() []VisitedStop {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]VisitedStop, len(s.visited))
	copy(out, s.visited)
	return out
}

func (s *Search) Done() <-chan struct{} {
	return s.done
}

func (s *Search) IsDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Result returns the route once the search is done. before that both values are nil.
func (s *Search) Result() (*Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route, s.err
}

// Elapsed is the running time so far, or the total once done.
func (s *Search) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished.IsZero() {
		return s.finished.Sub(s.startedAt)
	}
	return time.Since(s.startedAt)
}
