package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"feedback_bot/internal/batch"
	"feedback_bot/internal/bot"
	"feedback_bot/internal/classifier"
	"feedback_bot/internal/config"
	"feedback_bot/internal/filter"
	"feedback_bot/internal/report"
	"feedback_bot/internal/reviews"
	"feedback_bot/internal/scheduler"
	"feedback_bot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	matcher := filter.New(cfg.TrackedSubjects)
	agg := report.NewAggregator(store)

	client := classifier.NewAnthropic(cfg.AnthropicAPIKey, cfg.ClassifierModel)
	worker := batch.New(store, client, batch.Options{
		Interval:    cfg.BatchInterval,
		BatchSize:   cfg.BatchSize,
		Parallelism: cfg.BatchParallelism,
		MaxAttempts: cfg.ClassifyAttempts,
		BaseDelay:   cfg.ClassifyBaseDelay,
		MaxDelay:    cfg.ClassifyMaxDelay,
	}, log)

	sched := scheduler.New(store, agg, nil, log)

	b, err := bot.New(cfg.TelegramBotToken, store, matcher, sched, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}
	sched.SetSender(b)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "subjects", strings.Join(cfg.TrackedSubjects, ","))

	go worker.Run(ctx)
	go sched.Run(ctx)

	if len(cfg.ReviewFeeds) > 0 {
		poller := reviews.New(store, http.DefaultClient, cfg.ReviewFeeds, cfg.ReviewInterval, log)
		go poller.Run(ctx)
	}

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
