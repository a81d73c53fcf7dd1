package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jugvid/jugtrack/cmd/jugtrack/app"
)

const (
	modeRecord = "record"
	modeStatus = "status"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath, mode string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&mode, "m", modeRecord, "Mode to run in. [record, status]")
	flag.Parse()

	if configPath == "" {
		logger.Error("no configuration file provided")
		os.Exit(1)
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	logLevel.Set(config.Settings.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case modeRecord:
		err = app.Run(ctx, config, logger, app.Options{})
	case modeStatus:
		err = app.Status(ctx, config, logger, os.Stdout)
	default:
		err = fmt.Errorf("unknown mode '%s'", mode)
	}

	if err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
