package controllers

import (
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
	"github.com/lintang-b-s/navigatorx-transit/pkg/guidance"
	"github.com/lintang-b-s/navigatorx-transit/pkg/http/usecases"
)

type routeRequest struct {
	Start     string    `json:"start" validate:"required,max=200"`
	Stop      string    `json:"stop" validate:"required,max=200"`
	Departure time.Time `json:"departure"`
}

type stopsRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Limit int    `json:"limit" validate:"min=0,max=500"`
}

type stopResponse struct {
	ID            string  `json:"stop_id"`
	Name          string  `json:"stop_name"`
	Lat           float64 `json:"stop_lat"`
	Lon           float64 `json:"stop_lon"`
	ParentStation string  `json:"parent_station,omitempty"`
}

func NewStopResponse(s da.Stop) stopResponse {
	return stopResponse{
		ID:            s.ID,
		Name:          s.Name,
		Lat:           s.Lat,
		Lon:           s.Lon,
		ParentStation: s.ParentStation,
	}
}

func NewStopsResponse(stops []da.Stop) []stopResponse {
	out := make([]stopResponse, len(stops))
	for i, s := range stops {
		out[i] = NewStopResponse(s)
	}
	return out
}

type stopTimeResponse struct {
	stopResponse
	Arrival time.Time `json:"arrival"`
}

func NewStopTimeResponse(s da.Stop, arrival time.Time) stopTimeResponse {
	return stopTimeResponse{
		stopResponse: NewStopResponse(s),
		Arrival:      arrival,
	}
}

func NewVisitedResponse(visited []engine.VisitedStop) []stopTimeResponse {
	out := make([]stopTimeResponse, len(visited))
	for i, v := range visited {
		out[i] = NewStopTimeResponse(v.Stop, v.Arrival)
	}
	return out
}

func NewPathResponse(path []engine.StopTime) []stopTimeResponse {
	out := make([]stopTimeResponse, len(path))
	for i, st := range path {
		out[i] = NewStopTimeResponse(st.Stop, st.Arrival)
	}
	return out
}

type legResponse struct {
	Kind           string             `json:"kind"`
	TripID         string             `json:"trip_id,omitempty"`
	RouteID        string             `json:"route_id,omitempty"`
	RouteShortName string             `json:"route_short_name,omitempty"`
	RouteLongName  string             `json:"route_long_name,omitempty"`
	Headsign       string             `json:"headsign,omitempty"`
	Departure      time.Time          `json:"departure"`
	Arrival        time.Time          `json:"arrival"`
	Seconds        float64            `json:"seconds"`
	Stops          []stopTimeResponse `json:"stops"`
}

func NewLegResponse(l engine.Leg) legResponse {
	return legResponse{
		Kind:           l.Kind.String(),
		TripID:         l.TripID,
		RouteID:        l.RouteID,
		RouteShortName: l.RouteShortName,
		RouteLongName:  l.RouteLongName,
		Headsign:       l.Headsign,
		Departure:      l.Departure,
		Arrival:        l.Arrival,
		Seconds:        l.Seconds(),
		Stops:          NewPathResponse(l.Stops),
	}
}

type directionResponse struct {
	Sign        string       `json:"sign"`
	Description string       `json:"description"`
	Stop        stopResponse `json:"stop"`
	Time        time.Time    `json:"time"`
	Seconds     float64      `json:"seconds"`
	NumStops    int          `json:"num_stops,omitempty"`
	Bearing     float64      `json:"bearing"`
}

func NewDirectionsResponse(dirs []guidance.Direction) []directionResponse {
	out := make([]directionResponse, len(dirs))
	for i, d := range dirs {
		out[i] = directionResponse{
			Sign:        d.Sign.String(),
			Description: d.Description,
			Stop:        NewStopResponse(d.Stop),
			Time:        d.Time,
			Seconds:     d.Seconds,
			NumStops:    d.NumStops,
			Bearing:     d.Bearing,
		}
	}
	return out
}

type routeResponse struct {
	Status        string              `json:"status"`
	Departure     time.Time           `json:"departure"`
	Arrival       *time.Time          `json:"arrival,omitempty"`
	TotalSeconds  float64             `json:"total_seconds"`
	Path          []stopTimeResponse  `json:"path"`
	Legs          []legResponse       `json:"legs"`
	Directions    []directionResponse `json:"directions"`
	Polyline      string              `json:"polyline"`
	NumSettled    int                 `json:"num_settled"`
	NumDiscovered int                 `json:"num_discovered"`
}

func NewRouteResponse(route *engine.Route) routeResponse {
	resp := routeResponse{
		Status:        route.Status.String(),
		Departure:     route.Departure,
		TotalSeconds:  route.TotalSeconds(),
		Path:          NewPathResponse(route.Path),
		Legs:          make([]legResponse, len(route.Legs)),
		Directions:    NewDirectionsResponse(guidance.NewDirectionBuilder().GetJourneyDirections(route)),
		Polyline:      usecases.RoutePolyline(route),
		NumSettled:    route.NumSettled,
		NumDiscovered: route.NumDiscovered,
	}
	if route.Found() {
		arrival := route.Arrival
		resp.Arrival = &arrival
	}
	for i, l := range route.Legs {
		resp.Legs[i] = NewLegResponse(l)
	}
	return resp
}

type startRouteResponse struct {
	ID     string         `json:"id"`
	Values []stopResponse `json:"values"`
	Done   bool           `json:"done"`
}

type routeUpdatesResponse struct {
	Values    []stopTimeResponse `json:"values"`
	GoodPath  []stopTimeResponse `json:"goodPath"`
	TimeTaken float64            `json:"timetaken"`
	Done      bool               `json:"done"`
	Status    string             `json:"status,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func NewRouteUpdatesResponse(u usecases.Update) routeUpdatesResponse {
	resp := routeUpdatesResponse{
		Values:    NewVisitedResponse(u.Visited),
		GoodPath:  []stopTimeResponse{},
		TimeTaken: u.TimeTaken.Seconds(),
		Done:      u.Done,
	}
	if u.Route != nil {
		resp.GoodPath = NewPathResponse(u.Route.Path)
		resp.Status = u.Route.Status.String()
	}
	if u.Err != nil {
		resp.Error = u.Err.Error()
	}
	return resp
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
