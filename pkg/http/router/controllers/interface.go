package controllers

import (
	"context"
	"time"

	da "github.com/lintang-b-s/navigatorx-transit/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
	"github.com/lintang-b-s/navigatorx-transit/pkg/http/usecases"
)

type RouteService interface {
	SearchStops(name string, limit int) ([]da.Stop, error)
	StartSearch(startName, endName string, departure time.Time) (string, *engine.Search, error)
	Updates(id string) (usecases.Update, error)
	ComputeRoute(ctx context.Context, startName, endName string, departure time.Time) (*engine.Route, error)
	StreamRoute(ctx context.Context, startName, endName string, departure time.Time) (*engine.Search, context.CancelFunc, error)
}
