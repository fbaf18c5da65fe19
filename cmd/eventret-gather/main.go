package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"eventret/internal/app"
	"eventret/internal/config"
	"eventret/internal/gather"
	"eventret/internal/util"
)

func main() {
	once := flag.Bool("once", false, "run a single backfill pass and exit")
	flag.Parse()

	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Backend == "none" {
		log.Fatal("storage.backend is none; nothing to backfill")
	}

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/eventret-gather-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	util.SetDefault(util.NewLoggerTo(io.MultiWriter(os.Stdout, logFile), cfg.Logging.Level, "text"))

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise: %v", err)
	}
	defer a.Close()

	interval := cfg.Gather.Interval
	if *once {
		interval = 0
	}
	g := gather.NewBarGatherer(a.Source, a.Store, a.Catalogs, a.Offsets, gather.Options{
		BufferDays: cfg.Backtest.BufferDays,
		MaxWorkers: cfg.Gather.MaxWorkers,
		Interval:   interval,
		StateDir:   filepath.Join(cfg.Storage.DataDir, "us", "daily"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting eventret-gather", "logFile", logFileName, "symbols", a.Catalogs.Symbols(), "interval", interval)
	if err := g.Run(ctx); err != nil {
		log.Fatalf("daemon error: %v", err)
	}
}
