package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"talentmatch-client/internal/app"
	"talentmatch-client/internal/config"
	"talentmatch-client/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr so command output on stdout stays parseable.
	logHandler := logger.NewPrettyHandler(os.Stderr, logger.Options{
		Level: logger.ParseLevel(cfg.LogLevel),
		Color: logger.UseColor(os.Stderr),
	})
	slog.SetDefault(slog.New(logHandler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	application, err := app.New(cfg, os.Stdout, os.Stderr)
	if err != nil {
		stop()
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	code := application.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
