package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-transit/pkg/schedule"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingEngine struct {
	err error
}

func (f failingEngine) StartRoute(_ context.Context, _, _ string, _ time.Time) (*engine.Search, error) {
	return nil, f.err
}

func (f failingEngine) FindRoute(_ context.Context, _, _ string, _ time.Time) (*engine.Route, error) {
	return nil, f.err
}

type recordingStops struct {
	limit int
}

func (r *recordingStops) SearchByName(query string, limit int) []da.Stop {
	r.limit = limit
	return []da.Stop{da.NewStop("A1", query, 0, 0)}
}

func codeOf(t *testing.T, err error) error {
	t.Helper()
	var ierr *util.Error
	require.True(t, errors.As(err, &ierr), "%v is not a util.Error", err)
	return ierr.Code()
}

func newTimetableService(t *testing.T, timeout time.Duration) *RouteService {
	t.Helper()
	feed, err := schedule.LoadNetworkYAML("../../schedule/testdata/network.yaml")
	require.NoError(t, err)
	tt, err := schedule.NewTimetable(feed, time.UTC, schedule.DefaultStopIndexConfig(), zap.NewNop())
	require.NoError(t, err)
	e := engine.NewEngine(tt, tt, tt, zap.NewNop(), engine.DefaultConfig())
	return NewRouteService(zap.NewNop(), e, tt, NewSearchRegistry(16, time.Minute), timeout)
}

func TestSearchStops(t *testing.T) {
	stops := &recordingStops{}
	rs := NewRouteService(zap.NewNop(), failingEngine{}, stops, NewSearchRegistry(4, time.Minute), time.Second)

	_, err := rs.SearchStops("  ", 5)
	require.Error(t, err)
	assert.Equal(t, util.ErrBadParamInput, codeOf(t, err))

	found, err := rs.SearchStops("Alpha", 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, DEFAULT_STOP_SEARCH_LIMIT, stops.limit)

	_, err = rs.SearchStops("Alpha", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, stops.limit)
}

func TestComputeRouteErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code error
	}{
		{"cancelled", fmt.Errorf("%w: %w", routing.ErrCancelled, context.DeadlineExceeded), util.ErrTimeout},
		{"discovery failure", fmt.Errorf("%w: db down", routing.ErrDiscoveryFailure), util.ErrInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rs := NewRouteService(zap.NewNop(), failingEngine{err: c.err}, &recordingStops{},
				NewSearchRegistry(4, time.Minute), time.Second)
			_, err := rs.ComputeRoute(context.Background(), "Alpha", "Delta", time.Now())
			require.Error(t, err)
			assert.Equal(t, c.code, codeOf(t, err))
			assert.ErrorIs(t, err, c.err)
		})
	}
}

func TestComputeRouteOnTimetable(t *testing.T) {
	rs := newTimetableService(t, time.Minute)
	route, err := rs.ComputeRoute(context.Background(), "Alpha", "Delta", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, route.Found())
	assert.NotEmpty(t, RoutePolyline(route))

	route, err = rs.ComputeRoute(context.Background(), "Alpha", "Nowhere", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, engine.NO_STOPS_FOUND, route.Status)
	assert.Empty(t, RoutePolyline(route))
}

func TestStartSearchAndPollUpdates(t *testing.T) {
	rs := newTimetableService(t, time.Minute)

	id, search, err := rs.StartSearch("Alpha", "Delta", time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NotEmpty(t, search.Snapshot())

	<-search.Done()
	u, err := rs.Updates(id)
	require.NoError(t, err)
	assert.True(t, u.Done)
	require.NotNil(t, u.Route)
	assert.Equal(t, engine.ROUTE_FOUND, u.Route.Status)
	assert.NotEmpty(t, u.Visited)
	assert.NoError(t, u.Err)

	// a finished search is reported once
	_, err = rs.Updates(id)
	require.Error(t, err)
	assert.Equal(t, util.ErrNotFound, codeOf(t, err))
	assert.Equal(t, 0, rs.registry.Len())
}

func TestUpdatesUnknownID(t *testing.T) {
	rs := newTimetableService(t, time.Minute)
	_, err := rs.Updates("does-not-exist")
	require.Error(t, err)
	assert.Equal(t, util.ErrNotFound, codeOf(t, err))
}

func TestRegistryEvictionCancelsSearch(t *testing.T) {
	r := NewSearchRegistry(1, time.Minute)
	var cancelled atomic.Int32

	first := r.Add(nil, func() { cancelled.Add(1) })
	second := r.Add(nil, func() {})

	_, ok := r.Get(first)
	assert.False(t, ok)
	_, ok = r.Get(second)
	assert.True(t, ok)
	assert.Equal(t, int32(1), cancelled.Load())
}

func TestRegistryExpiryCancelsSearch(t *testing.T) {
	r := NewSearchRegistry(4, 20*time.Millisecond)
	var cancelled atomic.Bool

	id := r.Add(nil, func() { cancelled.Store(true) })
	assert.Eventually(t, func() bool {
		_, ok := r.Get(id)
		return !ok && cancelled.Load()
	}, 2*time.Second, 10*time.Millisecond)
}
