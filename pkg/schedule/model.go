package schedule

import (
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
)

type Route struct {
	ID        string `yaml:"id"`
	AgencyID  string `yaml:"agency,omitempty"`
	ShortName string `yaml:"short_name"`
	LongName  string `yaml:"long_name,omitempty"`
	Type      int    `yaml:"type,omitempty"`
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int
}

// StopTime times are seconds after the service day midnight, they may exceed 24h.
type StopTime struct {
	TripID    string
	StopID    string
	Sequence  int
	Arrival   int
	Departure int
}

// Calendar is the weekly pattern of a service between StartDate and EndDate (YYYYMMDD, inclusive).
type Calendar struct {
	ServiceID string
	// Weekdays indexed by time.Weekday.
	Weekdays  [7]bool
	StartDate string
	EndDate   string
}

const (
	SERVICE_ADDED   = 1
	SERVICE_REMOVED = 2
)

type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType int
}

// Feed is the subset of a GTFS static feed the router needs.
type Feed struct {
	Stops         []da.Stop
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
	Transfers     []da.Transfer
}
