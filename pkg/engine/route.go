package engine

import (
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
)

type RouteStatus uint8

const (
	ROUTE_FOUND RouteStatus = iota
	NO_STOPS_FOUND
	NO_PATH_FOUND
	SAME_STATION
)

func (s RouteStatus) String() string {
	switch s {
	case ROUTE_FOUND:
		return "found"
	case NO_STOPS_FOUND:
		return "no_stops_found"
	case NO_PATH_FOUND:
		return "no_path_found"
	default:
		return "same_station"
	}
}

// StopTime is a stop of the journey with the instant the journey reaches it.
type StopTime struct {
	Stop    da.Stop
	Arrival time.Time
}

// Leg is a maximal run of the journey on one trip, or a single foot transfer.
type Leg struct {
	Kind           da.EdgeKind
	TripID         string
	RouteID        string
	RouteShortName string
	RouteLongName  string
	Headsign       string
	// Stops of the leg, first is where it is boarded and last where it is left.
	Stops     []StopTime
	Departure time.Time
	Arrival   time.Time
}

func (l Leg) From() da.Stop {
	return l.Stops[0].Stop
}

func (l Leg) To() da.Stop {
	return l.Stops[len(l.Stops)-1].Stop
}

func (l Leg) Seconds() float64 {
	return l.Arrival.Sub(l.Departure).Seconds()
}

type Route struct {
	Status RouteStatus
	// Path is the journey without the virtual anchors. empty unless Status is ROUTE_FOUND.
	Path      []StopTime
	Legs      []Leg
	Departure time.Time
	Arrival   time.Time

	NumRelaxations int
	NumSettled     int
	NumDiscovered  int
}

func (r *Route) Found() bool {
	return r.Status == ROUTE_FOUND
}

// TotalSeconds is the time between the requested departure and the arrival, waiting included.
func (r *Route) TotalSeconds() float64 {
	if !r.Found() {
		return 0
	}
	return r.Arrival.Sub(r.Departure).Seconds()
}

func (r *Route) Stops() []da.Stop {
	stops := make([]da.Stop, len(r.Path))
	for i, st := range r.Path {
		stops[i] = st.Stop
	}
	return stops
}

func buildRoute(g *da.Graph, path []da.Index, departure time.Time, loc *time.Location) *Route {
	route := &Route{
		Status:    ROUTE_FOUND,
		Departure: departure.In(loc),
		Path:      make([]StopTime, len(path)),
	}
	for i, v := range path {
		vertex := g.GetVertex(v)
		route.Path[i] = StopTime{
			Stop:    *vertex.GetStop(),
			Arrival: util.UnixSecondsToTime(vertex.GetTentativeArrival()).In(loc),
		}
	}
	if len(path) == 0 {
		return route
	}
	route.Arrival = route.Path[len(path)-1].Arrival

	var cur *Leg
	for i := 1; i < len(path); i++ {
		tail := g.GetVertex(path[i-1])
		edge, _ := tail.GetEdgeTo(path[i])
		info := edge.GetInfo()
		if info == nil {
			info = &da.EdgeInfo{Kind: da.TRANSFER_EDGE}
		}

		legDeparture := route.Path[i-1].Arrival
		if edge.IsScheduled() {
			legDeparture = util.UnixSecondsToTime(edge.GetDeparture()).In(loc)
		}

		if cur != nil && info.Kind == da.RIDE_EDGE && cur.Kind == da.RIDE_EDGE && cur.TripID == info.TripID {
			cur.Stops = append(cur.Stops, route.Path[i])
			cur.Arrival = route.Path[i].Arrival
			continue
		}
		if cur != nil {
			route.Legs = append(route.Legs, *cur)
		}
		cur = &Leg{
			Kind:           info.Kind,
			TripID:         info.TripID,
			RouteID:        info.RouteID,
			RouteShortName: info.RouteShortName,
			RouteLongName:  info.RouteLongName,
			Headsign:       info.Headsign,
			Stops:          []StopTime{{Stop: route.Path[i-1].Stop, Arrival: legDeparture}, route.Path[i]},
			Departure:      legDeparture,
			Arrival:        route.Path[i].Arrival,
		}
	}
	if cur != nil {
		route.Legs = append(route.Legs, *cur)
	}
	return route
}
