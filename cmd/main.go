// Command sitepulse runs the currency normalization service and the simulated
// visitor feed behind a small web dashboard.
//
// Usage:
//
//	sitepulse --config config.yaml
//	sitepulse --locale GB --source binance
//	sitepulse --pick (choose the default country interactively)
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/vadiminshakov/sitepulse/config"
	"github.com/vadiminshakov/sitepulse/internal"
	"github.com/vadiminshakov/sitepulse/internal/setup"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Pick {
		cfg, err = setup.RunTUI(cfg)
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	app, err := internal.NewApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create app", zap.Error(err))
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("app stopped with error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
