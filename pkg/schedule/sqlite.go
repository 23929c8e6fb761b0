package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore serves the schedule from a SQLite database with the tables of schema.sql.
// stops are held in memory in a StopIndex, loaded at open and after every import.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
	cfg StopIndexConfig
	log *zap.Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	index   *StopIndex
}

// ConnectSQLite opens a SQLite database with WAL mode enabled.
func ConnectSQLite(dbPath string) (*sql.DB, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func OpenSQLite(ctx context.Context, dbPath string, loc *time.Location, cfg StopIndexConfig, log *zap.Logger) (*SQLiteStore, error) {
	db, err := ConnectSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &SQLiteStore{db: db, loc: loc, cfg: cfg, log: log}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.reloadStops(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("connected to SQLite schedule", zap.String("path", dbPath), zap.Int("stops", s.stopIndex().Len()))
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates tables if they don't exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Import replaces the content of every schedule table with feed, in one transaction.
func (s *SQLiteStore) Import(ctx context.Context, feed Feed) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	for _, t := range feedTables(feed) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t.name, err)
		}
		stmt, err := tx.PrepareContext(ctx, t.insertQuery())
		if err != nil {
			return fmt.Errorf("failed to prepare insert into %s: %w", t.name, err)
		}
		for _, row := range t.rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				stmt.Close()
				return fmt.Errorf("failed to insert into %s: %w", t.name, err)
			}
		}
		stmt.Close()
		s.log.Info("imported table", zap.String("table", t.name), zap.Int("rows", len(t.rows)))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return s.reloadStops(ctx)
}

func (s *SQLiteStore) reloadStops(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, stopsQuery)
	if err != nil {
		return fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	stops := []da.Stop{}
	for rows.Next() {
		stop, err := scanStop(rows)
		if err != nil {
			return fmt.Errorf("failed to scan stop row: %w", err)
		}
		stops = append(stops, stop)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating stop rows: %w", err)
	}

	idx := NewStopIndex(stops, s.cfg, s.log)
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) stopIndex() *StopIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *SQLiteStore) StopIndex() *StopIndex {
	return s.stopIndex()
}

func (s *SQLiteStore) SearchByName(query string, limit int) []da.Stop {
	return s.stopIndex().SearchByName(query, limit)
}

func (s *SQLiteStore) ResolveStopsByName(ctx context.Context, name string) ([]da.Stop, error) {
	return s.stopIndex().ResolveStopsByName(ctx, name)
}

func (s *SQLiteStore) StopsBetween(ctx context.Context, a, b da.Stop) ([]da.Stop, error) {
	return s.stopIndex().StopsBetween(ctx, a, b)
}

func (s *SQLiteStore) AllTransfers(ctx context.Context) ([]da.Transfer, error) {
	return s.queryTransfers(ctx, transfersQuery)
}

func (s *SQLiteStore) TransfersForStop(ctx context.Context, stopID string) ([]da.Transfer, error) {
	return s.queryTransfers(ctx, transfersForStopQuery, stopID, stopID)
}

func (s *SQLiteStore) queryTransfers(ctx context.Context, query string, args ...any) ([]da.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	transfers := []da.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfer rows: %w", err)
	}
	return transfers, nil
}

// queryer is *sql.DB or *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) nextDeparture(ctx context.Context, q queryer, stopID string, after time.Time) (da.Departure, bool, error) {
	return earliestDeparture(ctx, after, s.loc, func(ctx context.Context, day serviceDay, seconds int) (departureRow, bool, error) {
		row, err := scanDepartureRow(q.QueryRowContext(ctx, nextDepartureQuery, nextDepartureArgs(stopID, day, seconds)...))
		if errors.Is(err, sql.ErrNoRows) {
			return departureRow{}, false, nil
		}
		if err != nil {
			return departureRow{}, false, fmt.Errorf("failed to query next departure of %s: %w", stopID, err)
		}
		return row, true, nil
	})
}

func (s *SQLiteStore) NextDeparture(ctx context.Context, stopID string, after time.Time) (da.Departure, bool, error) {
	return s.nextDeparture(ctx, s.db, stopID, after)
}

// NextDepartures answers the whole batch inside one read transaction.
func (s *SQLiteStore) NextDepartures(ctx context.Context, qs []da.DepartureQuery) ([]da.DepartureResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	out := make([]da.DepartureResult, len(qs))
	for i, q := range qs {
		dep, ok, err := s.nextDeparture(ctx, tx, q.StopID, q.After)
		if err != nil {
			return nil, err
		}
		out[i] = da.DepartureResult{Departure: dep, Found: ok}
	}
	return out, nil
}
