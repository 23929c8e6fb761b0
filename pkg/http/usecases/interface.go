package usecases

import (
	"context"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
)

type RouteEngine interface {
	StartRoute(ctx context.Context, startName, endName string, departure time.Time) (*engine.Search, error)
	FindRoute(ctx context.Context, startName, endName string, departure time.Time) (*engine.Route, error)
}

type StopSearcher interface {
	SearchByName(query string, limit int) []da.Stop
}
