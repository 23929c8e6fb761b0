package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"go.uber.org/zap"
)

var (
	pgNextDepartureQuery    = postgresPlaceholders(nextDepartureQuery)
	pgTransfersForStopQuery = postgresPlaceholders(transfersForStopQuery)
	pgTransfersQuery        = postgresPlaceholders(transfersQuery)
	pgStopsQuery            = postgresPlaceholders(stopsQuery)
)

// PostgresStore serves the schedule from Postgres. a batch of next-departure queries is sent
// in one round-trip.
type PostgresStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
	cfg  StopIndexConfig
	log  *zap.Logger

	mu    sync.RWMutex
	index *StopIndex
}

func OpenPostgres(ctx context.Context, databaseURL string, loc *time.Location, cfg StopIndexConfig, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &PostgresStore{pool: pool, loc: loc, cfg: cfg, log: log}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.reloadStops(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("connected to Postgres schedule", zap.Int("stops", s.stopIndex().Len()))
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Import replaces the content of every schedule table with feed using COPY, in one transaction.
func (s *PostgresStore) Import(ctx context.Context, feed Feed) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range feedTables(feed) {
		if _, err := tx.Exec(ctx, "TRUNCATE "+t.name); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t.name, err)
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, t.columns, pgx.CopyFromRows(t.rows))
		if err != nil {
			return fmt.Errorf("failed to copy into %s: %w", t.name, err)
		}
		s.log.Info("imported table", zap.String("table", t.name), zap.Int64("rows", n))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return s.reloadStops(ctx)
}

func (s *PostgresStore) reloadStops(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, pgStopsQuery)
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

func (s *PostgresStore) stopIndex() *StopIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *PostgresStore) StopIndex() *StopIndex {
	return s.stopIndex()
}

func (s *PostgresStore) SearchByName(query string, limit int) []da.Stop {
	return s.stopIndex().SearchByName(query, limit)
}

func (s *PostgresStore) ResolveStopsByName(ctx context.Context, name string) ([]da.Stop, error) {
	return s.stopIndex().ResolveStopsByName(ctx, name)
}

func (s *PostgresStore) StopsBetween(ctx context.Context, a, b da.Stop) ([]da.Stop, error) {
	return s.stopIndex().StopsBetween(ctx, a, b)
}

func (s *PostgresStore) AllTransfers(ctx context.Context) ([]da.Transfer, error) {
	return s.queryTransfers(ctx, pgTransfersQuery)
}

func (s *PostgresStore) TransfersForStop(ctx context.Context, stopID string) ([]da.Transfer, error) {
	return s.queryTransfers(ctx, pgTransfersForStopQuery, stopID, stopID)
}

func (s *PostgresStore) queryTransfers(ctx context.Context, query string, args ...any) ([]da.Transfer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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

func scanPgDeparture(row pgx.Row, stopID string) (departureRow, bool, error) {
	r, err := scanDepartureRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return departureRow{}, false, nil
	}
	if err != nil {
		return departureRow{}, false, fmt.Errorf("failed to query next departure of %s: %w", stopID, err)
	}
	return r, true, nil
}

func (s *PostgresStore) NextDeparture(ctx context.Context, stopID string, after time.Time) (da.Departure, bool, error) {
	return earliestDeparture(ctx, after, s.loc, func(ctx context.Context, day serviceDay, seconds int) (departureRow, bool, error) {
		return scanPgDeparture(s.pool.QueryRow(ctx, pgNextDepartureQuery, nextDepartureArgs(stopID, day, seconds)...), stopID)
	})
}

// NextDepartures queues the lookups of both service days of every query in one pgx.Batch.
func (s *PostgresStore) NextDepartures(ctx context.Context, qs []da.DepartureQuery) ([]da.DepartureResult, error) {
	batch := &pgx.Batch{}
	days := make([][]serviceDay, len(qs))
	for i, q := range qs {
		days[i] = serviceDaysAround(q.After, s.loc)
		for _, day := range days[i] {
			batch.Queue(pgNextDepartureQuery, nextDepartureArgs(q.StopID, day, day.secondsAfter(q.After))...)
		}
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	out := make([]da.DepartureResult, len(qs))
	for i, q := range qs {
		for _, day := range days[i] {
			row, ok, err := scanPgDeparture(br.QueryRow(), q.StopID)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			dep := row.toDeparture(day)
			if !out[i].Found || dep.DepartureTime.Before(out[i].Departure.DepartureTime) {
				out[i] = da.DepartureResult{Departure: dep, Found: true}
			}
		}
	}
	return out, nil
}
