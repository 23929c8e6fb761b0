package schedule

import (
	"context"
	"math"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
)

const DATE_LAYOUT = "20060102"

// ServiceCalendar answers whether a service runs on a given service date.
type ServiceCalendar struct {
	calendars map[string]Calendar
	added     map[string]map[string]bool
	removed   map[string]map[string]bool
}

func NewServiceCalendar(calendars []Calendar, dates []CalendarDate) *ServiceCalendar {
	sc := &ServiceCalendar{
		calendars: make(map[string]Calendar, len(calendars)),
		added:     make(map[string]map[string]bool),
		removed:   make(map[string]map[string]bool),
	}
	for _, c := range calendars {
		sc.calendars[c.ServiceID] = c
	}
	for _, d := range dates {
		var set map[string]map[string]bool
		switch d.ExceptionType {
		case SERVICE_ADDED:
			set = sc.added
		case SERVICE_REMOVED:
			set = sc.removed
		default:
			continue
		}
		if set[d.Date] == nil {
			set[d.Date] = make(map[string]bool)
		}
		set[d.Date][d.ServiceID] = true
	}
	return sc
}

// IsActive: the calendar covers date, its weekday is set and no removal exists for date,
// or an addition exists for date.
func (sc *ServiceCalendar) IsActive(serviceID string, date time.Time) bool {
	key := date.Format(DATE_LAYOUT)
	if sc.added[key][serviceID] {
		return true
	}
	if sc.removed[key][serviceID] {
		return false
	}
	c, ok := sc.calendars[serviceID]
	if !ok {
		return false
	}
	if key < c.StartDate || key > c.EndDate {
		return false
	}
	return c.Weekdays[date.Weekday()]
}

// serviceDay is one service date in the feed timezone. midnight is "noon minus 12h",
// the reference instant of gtfs stop times, which differs from 00:00 on DST change days.
type serviceDay struct {
	date     time.Time
	midnight time.Time
}

func newServiceDay(y int, m time.Month, d int, loc *time.Location) serviceDay {
	noon := time.Date(y, m, d, 12, 0, 0, 0, loc)
	return serviceDay{
		date:     time.Date(y, m, d, 0, 0, 0, 0, loc),
		midnight: noon.Add(-12 * time.Hour),
	}
}

func (d serviceDay) key() string {
	return d.date.Format(DATE_LAYOUT)
}

func (d serviceDay) weekday() int {
	return int(d.date.Weekday())
}

func (d serviceDay) at(seconds int) time.Time {
	return d.midnight.Add(time.Duration(seconds) * time.Second)
}

// secondsAfter is the first whole second of the day at or after t.
func (d serviceDay) secondsAfter(t time.Time) int {
	return int(math.Ceil(t.Sub(d.midnight).Seconds()))
}

// serviceDaysAround returns the previous and the current service day of t. trips of the previous
// day still running after midnight have stop times past 24:00:00.
func serviceDaysAround(t time.Time, loc *time.Location) []serviceDay {
	local := t.In(loc)
	y, m, d := local.Date()
	prev := local.AddDate(0, 0, -1)
	py, pm, pd := prev.Date()
	return []serviceDay{newServiceDay(py, pm, pd, loc), newServiceDay(y, m, d, loc)}
}

// departureRow is a stop time joined with its trip, route and the successor stop time of the trip.
type departureRow struct {
	StopID               string
	TripID               string
	RouteID              string
	RouteShortName       string
	RouteLongName        string
	Headsign             string
	DirectionID          int
	ServiceID            string
	StopSequence         int
	ArrivalSeconds       int
	DepartureSeconds     int
	NextStopID           string
	NextStopSequence     int
	NextArrivalSeconds   int
	NextDepartureSeconds int
}

func (r departureRow) toDeparture(day serviceDay) da.Departure {
	return da.Departure{
		StopID:            r.StopID,
		TripID:            r.TripID,
		RouteID:           r.RouteID,
		RouteShortName:    r.RouteShortName,
		RouteLongName:     r.RouteLongName,
		Headsign:          r.Headsign,
		DirectionID:       r.DirectionID,
		ServiceID:         r.ServiceID,
		StopSequence:      r.StopSequence,
		DepartureTime:     day.at(r.DepartureSeconds),
		ArrivalTime:       day.at(r.ArrivalSeconds),
		NextStopID:        r.NextStopID,
		NextStopSequence:  r.NextStopSequence,
		NextArrivalTime:   day.at(r.NextArrivalSeconds),
		NextDepartureTime: day.at(r.NextDepartureSeconds),
	}
}

// dayLookup finds the first departure of the day at or after seconds, among active services.
type dayLookup func(ctx context.Context, day serviceDay, seconds int) (departureRow, bool, error)

// earliestDeparture runs lookup on the service days around after and keeps the earliest instant.
func earliestDeparture(ctx context.Context, after time.Time, loc *time.Location, lookup dayLookup) (da.Departure, bool, error) {
	var (
		best  da.Departure
		found bool
	)
	for _, day := range serviceDaysAround(after, loc) {
		row, ok, err := lookup(ctx, day, day.secondsAfter(after))
		if err != nil {
			return da.Departure{}, false, err
		}
		if !ok {
			continue
		}
		dep := row.toDeparture(day)
		if !found || dep.DepartureTime.Before(best.DepartureTime) {
			best = dep
			found = true
		}
	}
	return best, found, nil
}
