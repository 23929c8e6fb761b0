package schedule

import (
	_ "embed"
	"strconv"
	"strings"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
)

// schemaSQL is shared by the SQLite and the Postgres store.
//
//go:embed schema.sql
var schemaSQL string

func SchemaSQL() string {
	return schemaSQL
}

const stopsQuery = `
	SELECT stop_id, stop_name, stop_lat, stop_lon, parent_station
	FROM stops
	ORDER BY stop_id`

const transfersQuery = `
	SELECT from_stop_id, to_stop_id, transfer_type, min_transfer_time
	FROM transfers`

const transfersForStopQuery = transfersQuery + `
	WHERE from_stop_id = ? OR to_stop_id = ?`

// nextDepartureQuery finds the first stop time of a stop at or after a second of a service day,
// with the stop time that follows it in the same trip, among the services active that day.
// args: stop_id, seconds, date, date, weekday, date, date
const nextDepartureQuery = `
	WITH active_services AS (
		SELECT c.service_id
		FROM calendar c
		WHERE c.start_date <= ?
		  AND c.end_date >= ?
		  AND (CASE ?
				WHEN 0 THEN c.sunday
				WHEN 1 THEN c.monday
				WHEN 2 THEN c.tuesday
				WHEN 3 THEN c.wednesday
				WHEN 4 THEN c.thursday
				WHEN 5 THEN c.friday
				ELSE c.saturday
			  END) = 1
		  AND c.service_id NOT IN (
			SELECT cd.service_id FROM calendar_dates cd
			WHERE cd.date = ? AND cd.exception_type = 2
		  )
		UNION
		SELECT cd.service_id
		FROM calendar_dates cd
		WHERE cd.date = ? AND cd.exception_type = 1
	)
	SELECT
		st.stop_id,
		st.trip_id,
		t.route_id,
		COALESCE(r.route_short_name, ''),
		COALESCE(r.route_long_name, ''),
		t.trip_headsign,
		t.direction_id,
		t.service_id,
		st.stop_sequence,
		st.arrival_seconds,
		st.departure_seconds,
		nx.stop_id,
		nx.stop_sequence,
		nx.arrival_seconds,
		nx.departure_seconds
	FROM stop_times st
	JOIN trips t ON t.trip_id = st.trip_id
	JOIN active_services a ON a.service_id = t.service_id
	LEFT JOIN routes r ON r.route_id = t.route_id
	JOIN stop_times nx ON nx.trip_id = st.trip_id
	 AND nx.stop_sequence = (
		SELECT MIN(s2.stop_sequence) FROM stop_times s2
		WHERE s2.trip_id = st.trip_id AND s2.stop_sequence > st.stop_sequence
	 )
	WHERE st.stop_id = ?
	  AND st.departure_seconds >= ?
	ORDER BY st.departure_seconds, st.trip_id
	LIMIT 1`

func nextDepartureArgs(stopID string, day serviceDay, seconds int) []any {
	date := day.key()
	return []any{date, date, day.weekday(), date, date, stopID, seconds}
}

// postgresPlaceholders rewrites ? placeholders into $1, $2, ...
func postgresPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rowScanner is implemented by *sql.Row, *sql.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDepartureRow(sc rowScanner) (departureRow, error) {
	var r departureRow
	err := sc.Scan(
		&r.StopID,
		&r.TripID,
		&r.RouteID,
		&r.RouteShortName,
		&r.RouteLongName,
		&r.Headsign,
		&r.DirectionID,
		&r.ServiceID,
		&r.StopSequence,
		&r.ArrivalSeconds,
		&r.DepartureSeconds,
		&r.NextStopID,
		&r.NextStopSequence,
		&r.NextArrivalSeconds,
		&r.NextDepartureSeconds,
	)
	return r, err
}

func scanStop(sc rowScanner) (da.Stop, error) {
	var s da.Stop
	err := sc.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.ParentStation)
	return s, err
}

func scanTransfer(sc rowScanner) (da.Transfer, error) {
	var t da.Transfer
	err := sc.Scan(&t.FromStopID, &t.ToStopID, &t.TransferType, &t.MinTransferTime)
	return t, err
}

// table is the rows of one feed table in column order, shared by the SQLite inserts and the Postgres COPY.
type table struct {
	name    string
	columns []string
	rows    [][]any
}

func (t table) insertQuery() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return "INSERT INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (" + marks + ")"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func feedTables(feed Feed) []table {
	stops := table{name: "stops", columns: []string{"stop_id", "stop_name", "stop_lat", "stop_lon", "parent_station"}}
	for _, s := range feed.Stops {
		stops.rows = append(stops.rows, []any{s.ID, s.Name, s.Lat, s.Lon, s.ParentStation})
	}

	routes := table{name: "routes", columns: []string{"route_id", "agency_id", "route_short_name", "route_long_name", "route_type"}}
	for _, r := range feed.Routes {
		routes.rows = append(routes.rows, []any{r.ID, r.AgencyID, r.ShortName, r.LongName, r.Type})
	}

	trips := table{name: "trips", columns: []string{"trip_id", "route_id", "service_id", "trip_headsign", "direction_id"}}
	for _, t := range feed.Trips {
		trips.rows = append(trips.rows, []any{t.ID, t.RouteID, t.ServiceID, t.Headsign, t.DirectionID})
	}

	stopTimes := table{name: "stop_times", columns: []string{"trip_id", "stop_id", "stop_sequence", "arrival_seconds", "departure_seconds"}}
	for _, st := range feed.StopTimes {
		stopTimes.rows = append(stopTimes.rows, []any{st.TripID, st.StopID, st.Sequence, st.Arrival, st.Departure})
	}

	calendar := table{name: "calendar", columns: []string{"service_id", "monday", "tuesday", "wednesday", "thursday",
		"friday", "saturday", "sunday", "start_date", "end_date"}}
	for _, c := range feed.Calendars {
		w := c.Weekdays
		calendar.rows = append(calendar.rows, []any{c.ServiceID,
			boolToInt(w[1]), boolToInt(w[2]), boolToInt(w[3]), boolToInt(w[4]), boolToInt(w[5]), boolToInt(w[6]), boolToInt(w[0]),
			c.StartDate, c.EndDate})
	}

	calendarDates := table{name: "calendar_dates", columns: []string{"service_id", "date", "exception_type"}}
	for _, d := range feed.CalendarDates {
		calendarDates.rows = append(calendarDates.rows, []any{d.ServiceID, d.Date, d.ExceptionType})
	}

	transfers := table{name: "transfers", columns: []string{"from_stop_id", "to_stop_id", "transfer_type", "min_transfer_time"}}
	for _, t := range feed.Transfers {
		transfers.rows = append(transfers.rows, []any{t.FromStopID, t.ToStopID, t.TransferType, t.MinTransferTime})
	}

	return []table{stops, routes, trips, stopTimes, calendar, calendarDates, transfers}
}
