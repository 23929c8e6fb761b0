package schedule

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine/routing"
)

type departureKey struct {
	stopID string
	at     int64
}

type cachedDeparture struct {
	dep   da.Departure
	found bool
}

// CachedSchedule memoizes next-departure lookups. results are keyed by stop and by the first
// whole second at or after the instant asked, which is all the lookups depend on.
type CachedSchedule struct {
	inner routing.ScheduleIndex
	cache *lru.Cache[departureKey, cachedDeparture]
}

func NewCachedSchedule(inner routing.ScheduleIndex, size int) (*CachedSchedule, error) {
	cache, err := lru.New[departureKey, cachedDeparture](size)
	if err != nil {
		return nil, err
	}
	return &CachedSchedule{
		inner: inner,
		cache: cache,
	}, nil
}

func keyOf(stopID string, after time.Time) departureKey {
	at := after.Unix()
	if after.Nanosecond() > 0 {
		at++
	}
	return departureKey{stopID: stopID, at: at}
}

func (c *CachedSchedule) Len() int {
	return c.cache.Len()
}

func (c *CachedSchedule) NextDeparture(ctx context.Context, stopID string, after time.Time) (da.Departure, bool, error) {
	key := keyOf(stopID, after)
	if v, ok := c.cache.Get(key); ok {
		return v.dep, v.found, nil
	}
	dep, found, err := c.inner.NextDeparture(ctx, stopID, after)
	if err != nil {
		return da.Departure{}, false, err
	}
	c.cache.Add(key, cachedDeparture{dep: dep, found: found})
	return dep, found, nil
}

// NextDepartures forwards only the cache misses, in one batch when the inner index supports it.
func (c *CachedSchedule) NextDepartures(ctx context.Context, qs []da.DepartureQuery) ([]da.DepartureResult, error) {
	out := make([]da.DepartureResult, len(qs))
	missIdx := make([]int, 0, len(qs))
	misses := make([]da.DepartureQuery, 0, len(qs))
	for i, q := range qs {
		if v, ok := c.cache.Get(keyOf(q.StopID, q.After)); ok {
			out[i] = da.DepartureResult{Departure: v.dep, Found: v.found}
			continue
		}
		missIdx = append(missIdx, i)
		misses = append(misses, q)
	}
	if len(misses) == 0 {
		return out, nil
	}

	var results []da.DepartureResult
	if batch, ok := c.inner.(routing.BatchScheduleIndex); ok {
		var err error
		results, err = batch.NextDepartures(ctx, misses)
		if err != nil {
			return nil, err
		}
	} else {
		results = make([]da.DepartureResult, len(misses))
		for i, q := range misses {
			dep, found, err := c.inner.NextDeparture(ctx, q.StopID, q.After)
			if err != nil {
				return nil, err
			}
			results[i] = da.DepartureResult{Departure: dep, Found: found}
		}
	}

	for j, i := range missIdx {
		out[i] = results[j]
		c.cache.Add(keyOf(qs[i].StopID, qs[i].After), cachedDeparture{dep: results[j].Departure, found: results[j].Found})
	}
	return out, nil
}
