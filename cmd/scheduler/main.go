// Package main содержит точку входа для планировщика рассылки напоминаний.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/trialguard/internal/app/scheduler"
	"github.com/magabrotheeeer/trialguard/internal/config"
	"github.com/magabrotheeeer/trialguard/internal/lib/sl"
	"github.com/magabrotheeeer/trialguard/internal/services/dispatcher"
)

func main() {
	once := flag.Bool("once", false, "run a single dispatch and exit")
	mode := flag.String("mode", "", "dispatch mode for -once: overdue or today (default from config)")
	flag.Parse()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting scheduler", slog.String("env", cfg.Env), slog.Bool("once", *once))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		m := *mode
		if m == "" {
			m = cfg.DispatchMode
		}
		runMode, err := dispatcher.ParseMode(m)
		if err != nil {
			logger.Error("invalid dispatch mode", sl.Err(err))
			os.Exit(2)
		}
		app, err := scheduler.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to initialize scheduler", sl.Err(err))
			os.Exit(1)
		}
		summary, err := app.RunOnce(ctx, runMode)
		if err != nil && !errors.Is(err, dispatcher.ErrRunInProgress) {
			os.Exit(1)
		}
		if summary.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	app, err := scheduler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scheduler", sl.Err(err))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("scheduler stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("scheduler stopped gracefully")
}
