package datastructure

import (
	"time"
)

// Stop is a physical stop (one platform / one direction of a station).
type Stop struct {
	ID            string  `json:"stop_id" yaml:"id"`
	Name          string  `json:"stop_name" yaml:"name"`
	Lat           float64 `json:"stop_lat" yaml:"lat"`
	Lon           float64 `json:"stop_lon" yaml:"lon"`
	ParentStation string  `json:"parent_station,omitempty" yaml:"parent,omitempty"`
}

func NewStop(id, name string, lat, lon float64) Stop {
	return Stop{
		ID:   id,
		Name: name,
		Lat:  lat,
		Lon:  lon,
	}
}

func (s Stop) GetLat() float64 {
	return s.Lat
}

func (s Stop) GetLon() float64 {
	return s.Lon
}

// Transfer is a foot connection between two stops. MinTransferTime is in seconds.
type Transfer struct {
	FromStopID      string  `json:"from_stop_id"`
	ToStopID        string  `json:"to_stop_id"`
	TransferType    int     `json:"transfer_type"`
	MinTransferTime float64 `json:"min_transfer_time"`
}

func NewTransfer(from, to string, minTransferTime float64) Transfer {
	return Transfer{
		FromStopID:      from,
		ToStopID:        to,
		MinTransferTime: minTransferTime,
	}
}

// Departure is the next scheduled service leaving StopID, together with the
// stop the same trip serves next.
type Departure struct {
	StopID         string
	TripID         string
	RouteID        string
	RouteShortName string
	RouteLongName  string
	Headsign       string
	DirectionID    int
	ServiceID      string
	StopSequence   int
	DepartureTime  time.Time
	ArrivalTime    time.Time

	NextStopID        string
	NextStopSequence  int
	NextArrivalTime   time.Time
	NextDepartureTime time.Time
}

// RideSeconds is the in-vehicle time between leaving StopID and arriving at NextStopID.
func (d Departure) RideSeconds() float64 {
	ride := d.NextArrivalTime.Sub(d.DepartureTime).Seconds()
	if ride < 0 {
		return 0
	}
	return ride
}

func (d Departure) HasNextStop() bool {
	return d.NextStopID != ""
}

type EdgeKind uint8

const (
	ANCHOR_EDGE EdgeKind = iota
	RIDE_EDGE
	TRANSFER_EDGE
)

func (k EdgeKind) String() string {
	switch k {
	case RIDE_EDGE:
		return "ride"
	case TRANSFER_EDGE:
		return "transfer"
	default:
		return "anchor"
	}
}

// EdgeInfo is display-only metadata of an edge. it never takes part in comparisons.
type EdgeInfo struct {
	Kind           EdgeKind
	TripID         string
	RouteID        string
	RouteShortName string
	RouteLongName  string
	Headsign       string
}

func NewRideInfo(d Departure) *EdgeInfo {
	return &EdgeInfo{
		Kind:           RIDE_EDGE,
		TripID:         d.TripID,
		RouteID:        d.RouteID,
		RouteShortName: d.RouteShortName,
		RouteLongName:  d.RouteLongName,
		Headsign:       d.Headsign,
	}
}

func NewTransferInfo() *EdgeInfo {
	return &EdgeInfo{Kind: TRANSFER_EDGE}
}

type DepartureQuery struct {
	StopID string
	After  time.Time
}

type DepartureResult struct {
	Departure Departure
	Found     bool
}
