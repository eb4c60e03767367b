package main

import (
	"context"
	"os/signal"
	"syscall"

	"sentiment_research/internal/app"
	"sentiment_research/internal/config"
	"sentiment_research/internal/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)
	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := application.Run(ctx); err != nil {
		log.WithError(err).Fatal("run")
	}
}
