package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"go.uber.org/zap"
)

// stopEvent is a stop time that has a successor in its trip.
type stopEvent struct {
	st   StopTime
	next StopTime
}

/*
Timetable is an in-memory schedule built from a Feed. it serves as stop directory, transfer table
and (batched) schedule index of the engine. it is immutable after NewTimetable and safe for
concurrent use.
*/
type Timetable struct {
	feed Feed
	loc  *time.Location

	stops           map[string]da.Stop
	routes          map[string]Route
	trips           map[string]Trip
	events          map[string][]stopEvent
	calendar        *ServiceCalendar
	transfersByStop map[string][]da.Transfer

	index *StopIndex
}

func NewTimetable(feed Feed, loc *time.Location, cfg StopIndexConfig, log *zap.Logger) (*Timetable, error) {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	t := &Timetable{
		feed:            feed,
		loc:             loc,
		stops:           make(map[string]da.Stop, len(feed.Stops)),
		routes:          make(map[string]Route, len(feed.Routes)),
		trips:           make(map[string]Trip, len(feed.Trips)),
		events:          make(map[string][]stopEvent),
		calendar:        NewServiceCalendar(feed.Calendars, feed.CalendarDates),
		transfersByStop: make(map[string][]da.Transfer),
	}
	for _, s := range feed.Stops {
		t.stops[s.ID] = s
	}
	for _, r := range feed.Routes {
		t.routes[r.ID] = r
	}
	for _, tr := range feed.Trips {
		t.trips[tr.ID] = tr
	}

	byTrip := make(map[string][]StopTime, len(feed.Trips))
	skipped := 0
	for _, st := range feed.StopTimes {
		_, knownTrip := t.trips[st.TripID]
		_, knownStop := t.stops[st.StopID]
		if !knownTrip || !knownStop {
			skipped++
			continue
		}
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}
	if skipped > 0 {
		log.Warn("stop times referencing unknown trips or stops were skipped", zap.Int("skipped", skipped))
	}
	if len(feed.StopTimes) > 0 && skipped == len(feed.StopTimes) {
		return nil, fmt.Errorf("none of the %d stop times references a known trip and stop", skipped)
	}
	for _, sts := range byTrip {
		sort.Slice(sts, func(i, j int) bool {
			return sts[i].Sequence < sts[j].Sequence
		})
		for i := 0; i+1 < len(sts); i++ {
			t.events[sts[i].StopID] = append(t.events[sts[i].StopID], stopEvent{st: sts[i], next: sts[i+1]})
		}
	}
	for stopID := range t.events {
		evs := t.events[stopID]
		sort.Slice(evs, func(i, j int) bool {
			if evs[i].st.Departure != evs[j].st.Departure {
				return evs[i].st.Departure < evs[j].st.Departure
			}
			return evs[i].st.TripID < evs[j].st.TripID
		})
	}

	for _, tr := range feed.Transfers {
		t.transfersByStop[tr.FromStopID] = append(t.transfersByStop[tr.FromStopID], tr)
		if tr.ToStopID != tr.FromStopID {
			t.transfersByStop[tr.ToStopID] = append(t.transfersByStop[tr.ToStopID], tr)
		}
	}

	t.index = NewStopIndex(feed.Stops, cfg, log)
	log.Info("timetable loaded", zap.Int("stops", len(feed.Stops)), zap.Int("trips", len(feed.Trips)),
		zap.Int("stopTimes", len(feed.StopTimes)), zap.Int("transfers", len(feed.Transfers)))
	return t, nil
}

func (t *Timetable) Feed() Feed {
	return t.feed
}

func (t *Timetable) Location() *time.Location {
	return t.loc
}

func (t *Timetable) StopIndex() *StopIndex {
	return t.index
}

func (t *Timetable) GetStop(stopID string) (da.Stop, bool) {
	s, ok := t.stops[stopID]
	return s, ok
}

func (t *Timetable) SearchByName(query string, limit int) []da.Stop {
	return t.index.SearchByName(query, limit)
}

func (t *Timetable) ResolveStopsByName(ctx context.Context, name string) ([]da.Stop, error) {
	return t.index.ResolveStopsByName(ctx, name)
}

func (t *Timetable) StopsBetween(ctx context.Context, a, b da.Stop) ([]da.Stop, error) {
	return t.index.StopsBetween(ctx, a, b)
}

func (t *Timetable) AllTransfers(_ context.Context) ([]da.Transfer, error) {
	return t.feed.Transfers, nil
}

func (t *Timetable) TransfersForStop(_ context.Context, stopID string) ([]da.Transfer, error) {
	return t.transfersByStop[stopID], nil
}

func (t *Timetable) NextDeparture(ctx context.Context, stopID string, after time.Time) (da.Departure, bool, error) {
	if err := ctx.Err(); err != nil {
		return da.Departure{}, false, err
	}
	return earliestDeparture(ctx, after, t.loc, func(_ context.Context, day serviceDay, seconds int) (departureRow, bool, error) {
		return t.lookup(stopID, day, seconds)
	})
}

func (t *Timetable) NextDepartures(ctx context.Context, qs []da.DepartureQuery) ([]da.DepartureResult, error) {
	out := make([]da.DepartureResult, len(qs))
	for i, q := range qs {
		dep, ok, err := t.NextDeparture(ctx, q.StopID, q.After)
		if err != nil {
			return nil, err
		}
		out[i] = da.DepartureResult{Departure: dep, Found: ok}
	}
	return out, nil
}

func (t *Timetable) lookup(stopID string, day serviceDay, seconds int) (departureRow, bool, error) {
	evs := t.events[stopID]
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].st.Departure >= seconds
	})
	for ; i < len(evs); i++ {
		trip := t.trips[evs[i].st.TripID]
		if !t.calendar.IsActive(trip.ServiceID, day.date) {
			continue
		}
		return t.row(evs[i], trip), true, nil
	}
	return departureRow{}, false, nil
}

func (t *Timetable) row(ev stopEvent, trip Trip) departureRow {
	route := t.routes[trip.RouteID]
	return departureRow{
		StopID:               ev.st.StopID,
		TripID:               trip.ID,
		RouteID:              trip.RouteID,
		RouteShortName:       route.ShortName,
		RouteLongName:        route.LongName,
		Headsign:             trip.Headsign,
		DirectionID:          trip.DirectionID,
		ServiceID:            trip.ServiceID,
		StopSequence:         ev.st.Sequence,
		ArrivalSeconds:       ev.st.Arrival,
		DepartureSeconds:     ev.st.Departure,
		NextStopID:           ev.next.StopID,
		NextStopSequence:     ev.next.Sequence,
		NextArrivalSeconds:   ev.next.Arrival,
		NextDepartureSeconds: ev.next.Departure,
	}
}
