package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine"
	"github.com/lintang-b-s/navigatorx-transit/pkg/engine/routing"
	"github.com/lintang-b-s/navigatorx-transit/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-transit/pkg/http"
	"github.com/lintang-b-s/navigatorx-transit/pkg/http/usecases"
	"github.com/lintang-b-s/navigatorx-transit/pkg/logger"
	"github.com/lintang-b-s/navigatorx-transit/pkg/schedule"
	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"go.uber.org/zap"
)

var (
	configDir = flag.String("config", "", "directory holding config.yaml, ./data and . when empty")
)

// store is a schedule backend: it resolves stations, serves transfers and departures.
type store interface {
	routing.StopDirectory
	routing.TransferTable
	routing.ScheduleIndex
	usecases.StopSearcher
}

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := util.LoadConfig(paths...)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Navigatorx Transit Server failed", zap.Error(err))
	}
	log.Info("Navigatorx Transit Server Stopped")
}

func run(ctx context.Context, cfg util.Config, log *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	indexCfg := schedule.StopIndexConfig{
		BetweenFactor:   cfg.Routing.BetweenFactor,
		BetweenMarginKm: cfg.Routing.BetweenMarginKm,
	}

	st, closeStore, err := openStore(ctx, cfg, loc, indexCfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var departures routing.ScheduleIndex = st
	if cfg.Schedule.CacheSize > 0 {
		cached, err := schedule.NewCachedSchedule(st, cfg.Schedule.CacheSize)
		if err != nil {
			return err
		}
		departures = cached
	}

	engineCfg := engine.Config{
		Frontier:               pkg.GetFrontierKind(cfg.Routing.Frontier),
		ReorderOnImprove:       cfg.Routing.ReorderOnImprove,
		TransferMode:           pkg.GetTransferMode(cfg.Routing.TransferMode),
		MaxConcurrentDiscovery: cfg.Routing.MaxConcurrentDiscovery,
		DefaultTransferSeconds: cfg.Routing.DefaultTransferSeconds,
		Location:               loc,
	}
	routingEngine := engine.NewEngine(st, st, departures, log, engineCfg)

	registry := usecases.NewSearchRegistry(cfg.Registry.Size, cfg.Registry.TTL)
	routeService := usecases.NewRouteService(log, routingEngine, st, registry, cfg.APITimeout)

	log.Info("Navigatorx Transit Server starting", zap.String("backend", cfg.Schedule.Backend),
		zap.String("frontier", engineCfg.Frontier.String()), zap.String("transferMode", engineCfg.TransferMode.String()),
		zap.Int("cacheSize", cfg.Schedule.CacheSize))
	return http.NewServer(log).Use(ctx, cfg, routeService)
}

func openStore(ctx context.Context, cfg util.Config, loc *time.Location, indexCfg schedule.StopIndexConfig,
	log *zap.Logger) (store, func(), error) {
	noop := func() {}
	switch cfg.Schedule.Backend {
	case "sqlite":
		s, err := schedule.OpenSQLite(ctx, cfg.Schedule.SQLitePath, loc, indexCfg, log)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := schedule.OpenPostgres(ctx, cfg.Schedule.DatabaseURL, loc, indexCfg, log)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		feed, err := loadFeed(ctx, cfg, log)
		if err != nil {
			return nil, noop, err
		}
		tt, err := schedule.NewTimetable(feed, loc, indexCfg, log)
		if err != nil {
			return nil, noop, err
		}
		return tt, noop, nil
	}
}

// loadFeed reads the snapshot when one is configured, else the yaml network or the gtfs feed at gtfs_path.
func loadFeed(ctx context.Context, cfg util.Config, log *zap.Logger) (schedule.Feed, error) {
	if cfg.Schedule.SnapshotPath != "" {
		log.Info("loading timetable snapshot", zap.String("path", cfg.Schedule.SnapshotPath))
		return schedule.ReadSnapshot(cfg.Schedule.SnapshotPath)
	}
	path := cfg.Schedule.GTFSPath
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		log.Info("loading yaml network", zap.String("path", path))
		return schedule.LoadNetworkYAML(path)
	default:
		return gtfs.NewParser(log, 0).Parse(ctx, path)
	}
}
