package schedule

import (
	"fmt"
	"os"
	"strings"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"gopkg.in/yaml.v3"
)

// networkYAML is a compact network description for fixtures and demos.
// a trip lists its stops as "stop@HH:MM:SS" or "stop@arrival/departure".
type networkYAML struct {
	Stops    []da.Stop `yaml:"stops"`
	Routes   []Route   `yaml:"routes"`
	Services []struct {
		ID    string   `yaml:"id"`
		Start string   `yaml:"start"`
		End   string   `yaml:"end"`
		Days  []string `yaml:"days"`
	} `yaml:"services"`
	CalendarDates []struct {
		Service string `yaml:"service"`
		Date    string `yaml:"date"`
		Type    int    `yaml:"type"`
	} `yaml:"calendar_dates"`
	Trips []struct {
		ID        string   `yaml:"id"`
		Route     string   `yaml:"route"`
		Service   string   `yaml:"service"`
		Headsign  string   `yaml:"headsign"`
		Direction int      `yaml:"direction"`
		Stops     []string `yaml:"stops"`
	} `yaml:"trips"`
	Transfers []struct {
		From    string  `yaml:"from"`
		To      string  `yaml:"to"`
		Seconds float64 `yaml:"seconds"`
	} `yaml:"transfers"`
}

var weekdayNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

func LoadNetworkYAML(path string) (Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Feed{}, err
	}
	return ParseNetworkYAML(data)
}

func ParseNetworkYAML(data []byte) (Feed, error) {
	var n networkYAML
	if err := yaml.Unmarshal(data, &n); err != nil {
		return Feed{}, fmt.Errorf("invalid network yaml: %w", err)
	}

	feed := Feed{
		Stops:  n.Stops,
		Routes: n.Routes,
	}

	for _, s := range n.Services {
		c := Calendar{ServiceID: s.ID, StartDate: s.Start, EndDate: s.End}
		for _, d := range s.Days {
			if d == "all" {
				c.Weekdays = [7]bool{true, true, true, true, true, true, true}
				continue
			}
			idx, ok := weekdayNames[strings.ToLower(d)[:min(3, len(d))]]
			if !ok {
				return Feed{}, fmt.Errorf("service %s: unknown day %q", s.ID, d)
			}
			c.Weekdays[idx] = true
		}
		feed.Calendars = append(feed.Calendars, c)
	}

	for _, d := range n.CalendarDates {
		feed.CalendarDates = append(feed.CalendarDates, CalendarDate{ServiceID: d.Service, Date: d.Date, ExceptionType: d.Type})
	}

	for _, t := range n.Trips {
		feed.Trips = append(feed.Trips, Trip{ID: t.ID, RouteID: t.Route, ServiceID: t.Service,
			Headsign: t.Headsign, DirectionID: t.Direction})
		for seq, entry := range t.Stops {
			st, err := parseTripStop(t.ID, seq+1, entry)
			if err != nil {
				return Feed{}, err
			}
			feed.StopTimes = append(feed.StopTimes, st)
		}
	}

	for _, t := range n.Transfers {
		tr := da.NewTransfer(t.From, t.To, t.Seconds)
		tr.TransferType = 2
		feed.Transfers = append(feed.Transfers, tr)
	}
	return feed, nil
}

func parseTripStop(tripID string, seq int, entry string) (StopTime, error) {
	stopID, times, ok := strings.Cut(entry, "@")
	if !ok {
		return StopTime{}, fmt.Errorf("trip %s: stop %q has no time", tripID, entry)
	}
	arrival, departure, hasDeparture := strings.Cut(times, "/")
	arr, err := util.ParseGTFSTime(arrival)
	if err != nil {
		return StopTime{}, fmt.Errorf("trip %s: %w", tripID, err)
	}
	dep := arr
	if hasDeparture {
		if dep, err = util.ParseGTFSTime(departure); err != nil {
			return StopTime{}, fmt.Errorf("trip %s: %w", tripID, err)
		}
	}
	return StopTime{
		TripID:    tripID,
		StopID:    strings.TrimSpace(stopID),
		Sequence:  seq,
		Arrival:   arr,
		Departure: dep,
	}, nil
}
