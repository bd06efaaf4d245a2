package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"github.com/solarslot/solarslot/pkg/common"
	"github.com/solarslot/solarslot/pkg/forecast"
	"github.com/solarslot/solarslot/pkg/log"
	"github.com/solarslot/solarslot/pkg/metrics"
	"github.com/solarslot/solarslot/pkg/scheduler"
	"github.com/solarslot/solarslot/pkg/selector"
	"github.com/solarslot/solarslot/pkg/server"
	"github.com/solarslot/solarslot/pkg/storage"
	"github.com/solarslot/solarslot/pkg/tariff"
)

func main() {
	rec, err := metrics.New(nil)
	if err != nil {
		log.Ctx(context.Background()).Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	// init packages
	tz := common.ConfiguredTimezone()
	table := tariff.Configured()
	s := storage.Configured()
	fc := forecast.Configured(tz, rec)
	sched := scheduler.Configured(table, tz, rec)
	sel := selector.Configured(s, s, fc, rec)

	// init server
	srv := server.Configured(sched, fc, sel, table, s, rec)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog(llog.GetLevel())
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log.Ctx(ctx).DebugContext(ctx, "logger configured", slog.String("level", level.String()))

	// If initialization inside lflag.Do failed, we wouldn't be here.
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
