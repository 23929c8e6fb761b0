package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/lintang-b-s/navigatorx-transit/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-transit/pkg/logger"
	"github.com/lintang-b-s/navigatorx-transit/pkg/schedule"
	"go.uber.org/zap"
)

var (
	gtfsPath = flag.String("gtfs", "./data/gtfs", "gtfs feed, zip archive or directory")
	out      = flag.String("out", "sqlite", "destination: sqlite, postgres or snapshot")
	dst      = flag.String("dst", "./data/transit.db", "sqlite file, postgres url or snapshot file")
	workers  = flag.Int("workers", 0, "number of files parsed concurrently, one per file when 0")
)

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed, err := gtfs.NewParser(log, *workers).Parse(ctx, *gtfsPath)
	if err != nil {
		log.Fatal("failed to parse gtfs feed", zap.String("path", *gtfsPath), zap.Error(err))
	}

	switch *out {
	case "snapshot":
		err = schedule.WriteSnapshot(*dst, feed)
	case "sqlite":
		var s *schedule.SQLiteStore
		s, err = schedule.OpenSQLite(ctx, *dst, nil, schedule.DefaultStopIndexConfig(), log)
		if err == nil {
			err = s.Import(ctx, feed)
			s.Close()
		}
	case "postgres":
		var s *schedule.PostgresStore
		s, err = schedule.OpenPostgres(ctx, *dst, nil, schedule.DefaultStopIndexConfig(), log)
		if err == nil {
			err = s.Import(ctx, feed)
			s.Close()
		}
	default:
		log.Fatal("unknown destination", zap.String("out", *out))
	}
	if err != nil {
		log.Fatal("import failed", zap.String("out", *out), zap.String("dst", *dst), zap.Error(err))
	}
	log.Info("gtfs feed imported", zap.String("out", *out), zap.String("dst", *dst),
		zap.Int("stops", len(feed.Stops)), zap.Int("trips", len(feed.Trips)), zap.Int("stopTimes", len(feed.StopTimes)))
}
