package guidance

import (
	"context"
	"testing"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
	"github.com/lintang-b-s/navigatorx-transit/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJourneyDirectionsOnTimetable(t *testing.T) {
	feed, err := schedule.LoadNetworkYAML("../schedule/testdata/network.yaml")
	require.NoError(t, err)
	tt, err := schedule.NewTimetable(feed, time.UTC, schedule.DefaultStopIndexConfig(), zap.NewNop())
	require.NoError(t, err)
	e := engine.NewEngine(tt, tt, tt, zap.NewNop(), engine.DefaultConfig())

	route, err := e.FindRoute(context.Background(), "Alpha", "Delta", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	dirs := NewDirectionBuilder().GetJourneyDirections(route)
	require.Len(t, dirs, 3)

	assert.Equal(t, BOARD, dirs[0].Sign)
	assert.Equal(t, "Board line 2 towards Delta at Alpha at 08:02", dirs[0].Description)
	assert.Equal(t, 120.0, dirs[0].Seconds)
	assert.Equal(t, "A2", dirs[0].Stop.ID)

	assert.Equal(t, ALIGHT, dirs[1].Sign)
	assert.Equal(t, "Get off at Delta after 2 stops at 08:12", dirs[1].Description)
	assert.Equal(t, 2, dirs[1].NumStops)
	assert.Equal(t, 600.0, dirs[1].Seconds)

	assert.Equal(t, ARRIVE, dirs[2].Sign)
	assert.Equal(t, "Arrive at Delta at 08:12", dirs[2].Description)
}

func TestJourneyDirectionsWithWalk(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC) }
	a1 := da.NewStop("A1", "Alpha", 48.8566, 2.3522)
	b := da.NewStop("B", "Beta", 48.8600, 2.3600)
	c := da.NewStop("C", "Gamma", 48.8650, 2.3700)

	route := &engine.Route{
		Status:    engine.ROUTE_FOUND,
		Departure: at(7, 58),
		Arrival:   at(8, 9),
		Path:      []engine.StopTime{{Stop: a1, Arrival: at(7, 58)}, {Stop: b, Arrival: at(8, 5)}, {Stop: c, Arrival: at(8, 9)}},
		Legs: []engine.Leg{
			{Kind: da.RIDE_EDGE, TripID: "T9", Stops: []engine.StopTime{{Stop: a1, Arrival: at(8, 0)}, {Stop: b, Arrival: at(8, 5)}},
				Departure: at(8, 0), Arrival: at(8, 5)},
			{Kind: da.TRANSFER_EDGE, Stops: []engine.StopTime{{Stop: b, Arrival: at(8, 5)}, {Stop: c, Arrival: at(8, 9)}},
				Departure: at(8, 5), Arrival: at(8, 9)},
		},
	}

	dirs := NewDirectionBuilder().GetJourneyDirections(route)
	require.Len(t, dirs, 4)
	assert.Equal(t, "Board trip T9 at Alpha at 08:00", dirs[0].Description)
	assert.Equal(t, "Get off at Beta after 1 stop at 08:05", dirs[1].Description)
	assert.Equal(t, WALK, dirs[2].Sign)
	assert.Equal(t, "Walk north-east to Gamma (4 min)", dirs[2].Description)
	assert.Equal(t, ARRIVE, dirs[3].Sign)
}

func TestJourneyDirectionsNotFound(t *testing.T) {
	assert.Empty(t, NewDirectionBuilder().GetJourneyDirections(&engine.Route{Status: engine.NO_PATH_FOUND}))
	assert.Empty(t, NewDirectionBuilder().GetJourneyDirections(nil))
}

func TestCompassPoint(t *testing.T) {
	cases := map[float64]string{0: "north", 22: "north", 23: "north-east", 90: "east", 180: "south", 270: "west", 350: "north"}
	for bearing, want := range cases {
		assert.Equal(t, want, compassPoint(bearing), "bearing %v", bearing)
	}
}
