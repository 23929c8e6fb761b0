package schedule

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
)

const SNAPSHOT_HEADER = "navigatorx-transit-timetable 1"

/*
WriteSnapshot writes feed as a bzip2 compressed text file. each table is a "<name> <rows>" line
followed by one tab separated line per row, in this order: stops, routes, trips, stop_times,
calendar, calendar_dates, transfers.
*/
func WriteSnapshot(filename string, feed Feed) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(bz)
	if err := writeFeed(w, feed); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return bz.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeFeed(w io.Writer, feed Feed) error {
	fmt.Fprintln(w, SNAPSHOT_HEADER)

	fmt.Fprintf(w, "stops %d\n", len(feed.Stops))
	for _, s := range feed.Stops {
		writeRow(w, s.ID, s.Name, formatFloat(s.Lat), formatFloat(s.Lon), s.ParentStation)
	}

	fmt.Fprintf(w, "routes %d\n", len(feed.Routes))
	for _, r := range feed.Routes {
		writeRow(w, r.ID, r.AgencyID, r.ShortName, r.LongName, strconv.Itoa(r.Type))
	}

	fmt.Fprintf(w, "trips %d\n", len(feed.Trips))
	for _, t := range feed.Trips {
		writeRow(w, t.ID, t.RouteID, t.ServiceID, t.Headsign, strconv.Itoa(t.DirectionID))
	}

	fmt.Fprintf(w, "stop_times %d\n", len(feed.StopTimes))
	for _, st := range feed.StopTimes {
		writeRow(w, st.TripID, st.StopID, strconv.Itoa(st.Sequence), strconv.Itoa(st.Arrival), strconv.Itoa(st.Departure))
	}

	fmt.Fprintf(w, "calendar %d\n", len(feed.Calendars))
	for _, c := range feed.Calendars {
		days := make([]byte, 7)
		for i, on := range c.Weekdays {
			days[i] = '0'
			if on {
				days[i] = '1'
			}
		}
		writeRow(w, c.ServiceID, string(days), c.StartDate, c.EndDate)
	}

	fmt.Fprintf(w, "calendar_dates %d\n", len(feed.CalendarDates))
	for _, d := range feed.CalendarDates {
		writeRow(w, d.ServiceID, d.Date, strconv.Itoa(d.ExceptionType))
	}

	fmt.Fprintf(w, "transfers %d\n", len(feed.Transfers))
	for _, t := range feed.Transfers {
		writeRow(w, t.FromStopID, t.ToStopID, strconv.Itoa(t.TransferType), formatFloat(t.MinTransferTime))
	}
	return nil
}

func writeRow(w io.Writer, fields ...string) {
	for i, f := range fields {
		fields[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(f)
	}
	fmt.Fprintln(w, strings.Join(fields, "\t"))
}

func ReadSnapshot(filename string) (Feed, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Feed{}, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
	if err != nil {
		return Feed{}, err
	}
	defer bz.Close()

	return readFeed(bufio.NewReader(bz))
}

type snapshotReader struct {
	br   *bufio.Reader
	line int
}

func (r *snapshotReader) next() (string, error) {
	line, err := util.ReadLine(r.br)
	if err != nil {
		return "", fmt.Errorf("snapshot line %d: %w", r.line+1, err)
	}
	r.line++
	return line, nil
}

// section reads a "<name> <rows>" line and the rows that follow, each with exactly width fields.
func (r *snapshotReader) section(name string, width int) ([][]string, error) {
	line, err := r.next()
	if err != nil {
		return nil, err
	}
	head := util.Fields(line)
	if len(head) != 2 || head[0] != name {
		return nil, fmt.Errorf("snapshot line %d: expected section %s, got %q", r.line, name, line)
	}
	n, err := strconv.Atoi(head[1])
	if err != nil {
		return nil, fmt.Errorf("snapshot line %d: %w", r.line, err)
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		line, err := r.next()
		if err != nil {
			return nil, err
		}
		fields := strings.Split(line, "\t")
		if len(fields) != width {
			return nil, fmt.Errorf("snapshot line %d: %s row has %d fields, want %d", r.line, name, len(fields), width)
		}
		rows[i] = fields
	}
	return rows, nil
}

// fieldParser keeps the first conversion error.
type fieldParser struct {
	err error
}

func (p *fieldParser) int(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *fieldParser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func readFeed(br *bufio.Reader) (Feed, error) {
	r := &snapshotReader{br: br}
	header, err := r.next()
	if err != nil {
		return Feed{}, err
	}
	if header != SNAPSHOT_HEADER {
		return Feed{}, fmt.Errorf("not a timetable snapshot: %q", header)
	}

	var (
		feed Feed
		p    fieldParser
	)

	rows, err := r.section("stops", 5)
	if err != nil {
		return Feed{}, err
	}
	for _, f := range rows {
		stop := da.NewStop(f[0], f[1], p.float(f[2]), p.float(f[3]))
		stop.ParentStation = f[4]
		feed.Stops = append(feed.Stops, stop)
	}

	if rows, err = r.section("routes", 5); err != nil {
		return Feed{}, err
	}
	for _, f := range rows {
		feed.Routes = append(feed.Routes, Route{ID: f[0], AgencyID: f[1], ShortName: f[2], LongName: f[3], Type: p.int(f[4])})
	}

	if rows, err = r.section("trips", 5); err != nil {
		return Feed{}, err
	}
	for _, f := range rows {
		feed.Trips = append(feed.Trips, Trip{ID: f[0], RouteID: f[1], ServiceID: f[2], Headsign: f[3], DirectionID: p.int(f[4])})
	}

	if rows, err = r.section("stop_times", 5); err != nil {
		return Feed{}, err
	}
	for _, f := range rows {
		feed.StopTimes = append(feed.StopTimes, StopTime{TripID: f[0], StopID: f[1], Sequence: p.int(f[2]),
			Arrival: p.int(f[3]), Departure: p.int(f[4])})
	}

	if rows, err = r.section("calendar", 4); err != nil {
		return Feed{}, err
	}
	for _, f := range rows {
		c := Calendar{ServiceID: f[0], StartDate: f[2], EndDate: f[3]}
		if len(f[1]) != 7 {
			return Feed{}, fmt.Errorf("calendar %s: invalid weekdays %q", f[0], f[1])
		}
		for i := 0; i < 7; i++ {
			c.Weekdays[i] = f[1][i] == '1'
		}
		feed.Calendars = append(feed.Calendars, c)
	}

	if rows, err = r.section("calendar_dates", 3); err != nil {
		return Feed{}, err
	}
	for _, f := range rows {
		feed.CalendarDates = append(feed.CalendarDates, CalendarDate{ServiceID: f[0], Date: f[1], ExceptionType: p.int(f[2])})
	}

	if rows, err = r.section("transfers", 4); err != nil {
		return Feed{}, err
	}
	for _, f := range rows {
		t := da.NewTransfer(f[0], f[1], p.float(f[3]))
		t.TransferType = p.int(f[2])
		feed.Transfers = append(feed.Transfers, t)
	}

	if p.err != nil {
		return Feed{}, fmt.Errorf("invalid snapshot field: %w", p.err)
	}
	return feed, nil
}
