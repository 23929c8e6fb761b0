package guidance

import (
	"fmt"
	"math"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
)

type Sign uint8

const (
	BOARD Sign = iota
	ALIGHT
	WALK
	ARRIVE
)

func (s Sign) String() string {
	switch s {
	case BOARD:
		return "board"
	case ALIGHT:
		return "alight"
	case WALK:
		return "walk"
	default:
		return "arrive"
	}
}

// Direction is one step of the journey as shown to a traveller.
type Direction struct {
	Sign        Sign
	Description string
	Stop        da.Stop
	Time        time.Time
	// Seconds is the wait before boarding, the ride for an alight step and the walk for a transfer.
	Seconds  float64
	NumStops int
	Bearing  float64
}

type DirectionBuilder struct {
	directions  []Direction
	prevArrival time.Time
}

func NewDirectionBuilder() *DirectionBuilder {
	return &DirectionBuilder{
		directions: make([]Direction, 0),
	}
}

// GetJourneyDirections turns the legs of route into board, alight and walk steps, ending with the arrival.
// routes that were not found have no directions.
func (db *DirectionBuilder) GetJourneyDirections(route *engine.Route) []Direction {
	db.directions = db.directions[:0]
	if route == nil || !route.Found() || len(route.Legs) == 0 {
		return []Direction{}
	}
	db.prevArrival = route.Departure

	for _, leg := range route.Legs {
		switch leg.Kind {
		case da.RIDE_EDGE:
			db.buildRideInstructions(leg)
		default:
			db.buildWalkInstruction(leg)
		}
		db.prevArrival = leg.Arrival
	}
	db.buildFinalInstruction(route)

	out := make([]Direction, len(db.directions))
	copy(out, db.directions)
	return out
}

func lineName(leg engine.Leg) string {
	switch {
	case leg.RouteShortName != "":
		return "line " + leg.RouteShortName
	case leg.RouteLongName != "":
		return leg.RouteLongName
	case leg.TripID != "":
		return "trip " + leg.TripID
	default:
		return "the service"
	}
}

func clock(t time.Time) string {
	return t.Format("15:04")
}

func (db *DirectionBuilder) buildRideInstructions(leg engine.Leg) {
	from, to := leg.From(), leg.To()
	wait := math.Max(0, leg.Departure.Sub(db.prevArrival).Seconds())

	desc := fmt.Sprintf("Board %s at %s at %s", lineName(leg), from.Name, clock(leg.Departure))
	if leg.Headsign != "" {
		desc = fmt.Sprintf("Board %s towards %s at %s at %s", lineName(leg), leg.Headsign, from.Name, clock(leg.Departure))
	}
	db.directions = append(db.directions, Direction{
		Sign:        BOARD,
		Description: desc,
		Stop:        from,
		Time:        leg.Departure,
		Seconds:     wait,
		Bearing:     computeInitialBearing(from.Lat, from.Lon, to.Lat, to.Lon),
	})

	numStops := len(leg.Stops) - 1
	unit := "stops"
	if numStops == 1 {
		unit = "stop"
	}
	db.directions = append(db.directions, Direction{
		Sign:        ALIGHT,
		Description: fmt.Sprintf("Get off at %s after %d %s at %s", to.Name, numStops, unit, clock(leg.Arrival)),
		Stop:        to,
		Time:        leg.Arrival,
		Seconds:     leg.Seconds(),
		NumStops:    numStops,
	})
}

func (db *DirectionBuilder) buildWalkInstruction(leg engine.Leg) {
	from, to := leg.From(), leg.To()
	bearing := computeInitialBearing(from.Lat, from.Lon, to.Lat, to.Lon)
	minutes := int(math.Ceil(util.SecondsToMinutes(leg.Seconds())))

	desc := fmt.Sprintf("Walk %s to %s (%d min)", compassPoint(bearing), to.Name, minutes)
	if from.Name == to.Name {
		desc = fmt.Sprintf("Change platform at %s (%d min)", to.Name, minutes)
	}
	db.directions = append(db.directions, Direction{
		Sign:        WALK,
		Description: desc,
		Stop:        to,
		Time:        leg.Arrival,
		Seconds:     leg.Seconds(),
		Bearing:     bearing,
	})
}

func (db *DirectionBuilder) buildFinalInstruction(route *engine.Route) {
	last := route.Path[len(route.Path)-1]
	db.directions = append(db.directions, Direction{
		Sign:        ARRIVE,
		Description: fmt.Sprintf("Arrive at %s at %s", last.Stop.Name, clock(last.Arrival)),
		Stop:        last.Stop,
		Time:        last.Arrival,
	})
}
