package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"eventret/internal/api"
	"eventret/internal/app"
	"eventret/internal/config"
	"eventret/internal/httpapi"
	"eventret/internal/metrics"
	"eventret/internal/util"
)

func main() {
	cfg, err := config.LoadDefault()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise: %v", err)
	}
	defer a.Close()

	svc := a.Service()
	rest := httpapi.NewServer(svc, metrics.Handler(a.Registry), cfg.Server.CORS)
	srv := api.NewServer(cfg, rest.Handler(), api.NewBacktestService(svc))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("eventret-server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"grpcPort", cfg.Server.GRPCPort,
		"source", cfg.Provider.Source,
		"storage", cfg.Storage.Backend,
		"catalogs", a.Catalogs.List(),
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		a.Close()
		log.Fatal(err)
	}
	slog.Info("eventret-server stopped")
}
