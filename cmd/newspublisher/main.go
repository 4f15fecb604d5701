package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"NewsPublisher/internal/app"
	"NewsPublisher/internal/config"
	"NewsPublisher/internal/logging"
)

func main() {
	var configPath, task string
	flag.StringVar(&configPath, "config", os.Getenv(config.ConfigPathEnv), "path to YAML config file")
	flag.StringVar(&task, "run", "", "run one task now and exit (publish, email-report, remix, stats-collection)")
	flag.Parse()

	cfg := config.LoadFrom(configPath)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}

	if task != "" {
		err = application.RunTask(ctx, task)
	} else {
		err = application.Run(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
