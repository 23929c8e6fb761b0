package gtfs

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lintang-b-s/navigatorx-transit/pkg/concurrent"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/schedule"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"go.uber.org/zap"
)

const (
	STOPS_FILE          = "stops.txt"
	ROUTES_FILE         = "routes.txt"
	TRIPS_FILE          = "trips.txt"
	STOP_TIMES_FILE     = "stop_times.txt"
	CALENDAR_FILE       = "calendar.txt"
	CALENDAR_DATES_FILE = "calendar_dates.txt"
	TRANSFERS_FILE      = "transfers.txt"
)

var requiredFiles = map[string]bool{
	STOPS_FILE:      true,
	TRIPS_FILE:      true,
	STOP_TIMES_FILE: true,
}

var feedFiles = []string{STOPS_FILE, ROUTES_FILE, TRIPS_FILE, STOP_TIMES_FILE, CALENDAR_FILE, CALENDAR_DATES_FILE, TRANSFERS_FILE}

// source opens the files of a feed, from a zip archive or a directory.
type source interface {
	open(name string) (io.ReadCloser, error)
	close() error
}

type dirSource struct {
	dir string
}

func (s dirSource) open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, name))
}

func (s dirSource) close() error {
	return nil
}

type zipSource struct {
	r     *zip.ReadCloser
	files map[string]*zip.File
}

func openZip(filename string) (*zipSource, error) {
	r, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	s := &zipSource{r: r, files: make(map[string]*zip.File)}
	for _, f := range r.File {
		// feeds zipped with their enclosing folder
		s.files[strings.ToLower(path.Base(f.Name))] = f
	}
	return s, nil
}

func (s *zipSource) open(name string) (io.ReadCloser, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return f.Open()
}

func (s *zipSource) close() error {
	return s.r.Close()
}

type Parser struct {
	log     *zap.Logger
	workers int
}

func NewParser(log *zap.Logger, workers int) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = len(feedFiles)
	}
	return &Parser{log: log, workers: workers}
}

// fileResult is the parsed content of one feed file.
type fileResult struct {
	name    string
	missing bool
	skipped int
	err     error

	stops         []da.Stop
	routes        []schedule.Route
	trips         []schedule.Trip
	stopTimes     []schedule.StopTime
	calendars     []schedule.Calendar
	calendarDates []schedule.CalendarDate
	transfers     []da.Transfer
}

/*
Parse reads a GTFS static feed from a zip archive or a directory. the files are parsed
concurrently. stops.txt, trips.txt and stop_times.txt are required, the other files may be missing.
rows that cannot be parsed are skipped and counted.
*/
func (p *Parser) Parse(ctx context.Context, feedPath string) (schedule.Feed, error) {
	info, err := os.Stat(feedPath)
	if err != nil {
		return schedule.Feed{}, err
	}
	var src source
	if info.IsDir() {
		src = dirSource{dir: feedPath}
	} else {
		zs, err := openZip(feedPath)
		if err != nil {
			return schedule.Feed{}, err
		}
		src = zs
	}
	defer src.close()

	results, err := concurrent.Run(ctx, p.workers, feedFiles, func(_ context.Context, name string) fileResult {
		return parseFile(src, name)
	})
	if err != nil {
		return schedule.Feed{}, fmt.Errorf("gtfs feed %s: %w", feedPath, err)
	}

	var feed schedule.Feed
	for _, res := range results {
		if res.missing {
			if requiredFiles[res.name] {
				return schedule.Feed{}, fmt.Errorf("gtfs feed %s: missing %s", feedPath, res.name)
			}
			p.log.Warn("optional gtfs file missing", zap.String("file", res.name))
			continue
		}
		if res.err != nil {
			return schedule.Feed{}, fmt.Errorf("gtfs feed %s: %s: %w", feedPath, res.name, res.err)
		}
		if res.skipped > 0 {
			p.log.Warn("skipped invalid gtfs rows", zap.String("file", res.name), zap.Int("rows", res.skipped))
		}
		switch res.name {
		case STOPS_FILE:
			feed.Stops = res.stops
		case ROUTES_FILE:
			feed.Routes = res.routes
		case TRIPS_FILE:
			feed.Trips = res.trips
		case STOP_TIMES_FILE:
			feed.StopTimes = res.stopTimes
		case CALENDAR_FILE:
			feed.Calendars = res.calendars
		case CALENDAR_DATES_FILE:
			feed.CalendarDates = res.calendarDates
		case TRANSFERS_FILE:
			feed.Transfers = res.transfers
		}
	}

	p.log.Info("gtfs parsed", zap.String("path", feedPath), zap.Int("stops", len(feed.Stops)),
		zap.Int("routes", len(feed.Routes)), zap.Int("trips", len(feed.Trips)),
		zap.Int("stopTimes", len(feed.StopTimes)), zap.Int("transfers", len(feed.Transfers)))
	return feed, nil
}

func parseFile(src source, name string) fileResult {
	res := fileResult{name: name}
	rc, err := src.open(name)
	if errors.Is(err, fs.ErrNotExist) {
		res.missing = true
		return res
	}
	if err != nil {
		res.err = err
		return res
	}
	defer rc.Close()

	r, err := newTableReader(rc)
	if err != nil {
		res.err = err
		return res
	}

	for {
		rec, err := r.next()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.skipped++
			continue
		}
		if err != nil {
			res.err = err
			return res
		}
		if !res.add(rec) {
			res.skipped++
		}
	}
	return res
}

// add parses one row into the result. it reports false for rows that are skipped.
func (res *fileResult) add(rec record) bool {
	switch res.name {
	case STOPS_FILE:
		// stations, entrances and nodes are not boarded
		if lt := rec.get("location_type"); lt != "" && lt != "0" {
			return true
		}
		lat, errLat := strconv.ParseFloat(rec.get("stop_lat"), 64)
		lon, errLon := strconv.ParseFloat(rec.get("stop_lon"), 64)
		if rec.get("stop_id") == "" || errLat != nil || errLon != nil {
			return false
		}
		stop := da.NewStop(rec.get("stop_id"), rec.get("stop_name"), lat, lon)
		stop.ParentStation = rec.get("parent_station")
		res.stops = append(res.stops, stop)

	case ROUTES_FILE:
		routeType, _ := strconv.Atoi(rec.get("route_type"))
		res.routes = append(res.routes, schedule.Route{
			ID:        rec.get("route_id"),
			AgencyID:  rec.get("agency_id"),
			ShortName: rec.get("route_short_name"),
			LongName:  rec.get("route_long_name"),
			Type:      routeType,
		})

	case TRIPS_FILE:
		if rec.get("trip_id") == "" {
			return false
		}
		direction, _ := strconv.Atoi(rec.get("direction_id"))
		res.trips = append(res.trips, schedule.Trip{
			ID:          rec.get("trip_id"),
			RouteID:     rec.get("route_id"),
			ServiceID:   rec.get("service_id"),
			Headsign:    rec.get("trip_headsign"),
			DirectionID: direction,
		})

	case STOP_TIMES_FILE:
		st, ok := parseStopTime(rec)
		if !ok {
			return false
		}
		res.stopTimes = append(res.stopTimes, st)

	case CALENDAR_FILE:
		c := schedule.Calendar{
			ServiceID: rec.get("service_id"),
			StartDate: rec.get("start_date"),
			EndDate:   rec.get("end_date"),
		}
		for i, day := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
			c.Weekdays[i] = rec.get(day) == "1"
		}
		if c.ServiceID == "" || len(c.StartDate) != 8 || len(c.EndDate) != 8 {
			return false
		}
		res.calendars = append(res.calendars, c)

	case CALENDAR_DATES_FILE:
		exception, err := strconv.Atoi(rec.get("exception_type"))
		if err != nil || len(rec.get("date")) != 8 {
			return false
		}
		res.calendarDates = append(res.calendarDates, schedule.CalendarDate{
			ServiceID:     rec.get("service_id"),
			Date:          rec.get("date"),
			ExceptionType: exception,
		})

	case TRANSFERS_FILE:
		transferType, _ := strconv.Atoi(rec.get("transfer_type"))
		// transfer_type 3: no transfer possible
		if transferType == 3 {
			return true
		}
		minTime, _ := strconv.ParseFloat(rec.get("min_transfer_time"), 64)
		t := da.NewTransfer(rec.get("from_stop_id"), rec.get("to_stop_id"), minTime)
		t.TransferType = transferType
		if t.FromStopID == "" || t.ToStopID == "" {
			return false
		}
		res.transfers = append(res.transfers, t)
	}
	return true
}

// parseStopTime fills a missing arrival or departure with the other one.
// rows without any time are left to interpolation, which is not supported.
func parseStopTime(rec record) (schedule.StopTime, bool) {
	seq, err := strconv.Atoi(rec.get("stop_sequence"))
	if err != nil {
		return schedule.StopTime{}, false
	}
	arrival, departure := rec.get("arrival_time"), rec.get("departure_time")
	if arrival == "" {
		arrival = departure
	}
	if departure == "" {
		departure = arrival
	}
	if arrival == "" {
		return schedule.StopTime{}, false
	}
	arr, err := util.ParseGTFSTime(arrival)
	if err != nil {
		return schedule.StopTime{}, false
	}
	dep, err := util.ParseGTFSTime(departure)
	if err != nil {
		return schedule.StopTime{}, false
	}
	return schedule.StopTime{
		TripID:    rec.get("trip_id"),
		StopID:    rec.get("stop_id"),
		Sequence:  seq,
		Arrival:   arr,
		Departure: dep,
	}, true
}

type tableReader struct {
	r   *csv.Reader
	idx map[string]int
}

func newTableReader(rd io.Reader) (*tableReader, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.TrimSpace(h)] = i
	}
	return &tableReader{r: r, idx: idx}, nil
}

type record struct {
	fields []string
	idx    map[string]int
}

func (r *tableReader) next() (record, error) {
	fields, err := r.r.Read()
	if err != nil {
		return record{}, err
	}
	return record{fields: fields, idx: r.idx}, nil
}

func (rec record) get(column string) string {
	i, ok := rec.idx[column]
	if !ok || i >= len(rec.fields) {
		return ""
	}
	return strings.TrimSpace(rec.fields[i])
}

// ParseTimetable parses the feed at feedPath and indexes it into a Timetable.
func (p *Parser) ParseTimetable(ctx context.Context, feedPath string, loc *time.Location, cfg schedule.StopIndexConfig) (*schedule.Timetable, error) {
	feed, err := p.Parse(ctx, feedPath)
	if err != nil {
		return nil, err
	}
	return schedule.NewTimetable(feed, loc, cfg, p.log)
}
