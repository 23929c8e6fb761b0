package routing

import (
	"context"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
)

type StopDirectory interface {
	// ResolveStopsByName returns every physical stop (platform) carrying name.
	ResolveStopsByName(ctx context.Context, name string) ([]da.Stop, error)
	// StopsBetween returns the bounded set of stops plausibly on a path from a to b, a and b included.
	StopsBetween(ctx context.Context, a, b da.Stop) ([]da.Stop, error)
}

type TransferTable interface {
	AllTransfers(ctx context.Context) ([]da.Transfer, error)
	TransfersForStop(ctx context.Context, stopID string) ([]da.Transfer, error)
}

type ScheduleIndex interface {
	// NextDeparture returns the first service leaving stopID at or after after. ok is false when
	// nothing departs for the rest of the service day.
	NextDeparture(ctx context.Context, stopID string, after time.Time) (dep da.Departure, ok bool, err error)
}

// BatchScheduleIndex answers many NextDeparture queries in one round-trip. results[i] answers queries[i].
type BatchScheduleIndex interface {
	ScheduleIndex
	NextDepartures(ctx context.Context, queries []da.DepartureQuery) ([]da.DepartureResult, error)
}
