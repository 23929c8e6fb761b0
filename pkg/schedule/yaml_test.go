package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetworkYAML(t *testing.T) {
	feed := loadTestFeed(t)

	assert.Len(t, feed.Stops, 6)
	assert.Len(t, feed.Routes, 2)
	assert.Len(t, feed.Trips, 6)
	assert.Len(t, feed.StopTimes, 18)
	assert.Len(t, feed.CalendarDates, 2)
	require.Len(t, feed.Calendars, 2)
	assert.Equal(t, [7]bool{false, true, true, true, true, true, false}, feed.Calendars[0].Weekdays)
	assert.Equal(t, [7]bool{true, false, false, false, false, false, true}, feed.Calendars[1].Weekdays)

	var c StopTime
	for _, st := range feed.StopTimes {
		if st.TripID == "T4" && st.StopID == "C" {
			c = st
		}
	}
	assert.Equal(t, 2, c.Sequence)
	assert.Equal(t, 24*3600+4*60, c.Arrival)
	assert.Equal(t, 24*3600+5*60, c.Departure)
}

func TestParseNetworkYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"missing time": "trips:\n  - id: X\n    stops: [\"A\"]\n",
		"bad time":     "trips:\n  - id: X\n    stops: [\"A@8h\"]\n",
		"bad day":      "services:\n  - id: s\n    days: [someday]\n",
		"not yaml":     "stops: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNetworkYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}
