// Package batch drains pending feedback records through the classifier.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"feedback_bot/internal/classifier"
	"feedback_bot/internal/model"
	"feedback_bot/internal/storage"
)

// Options bound the per-tick classifier cost.
type Options struct {
	Interval    time.Duration
	BatchSize   int
	Parallelism int
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Worker classifies pending records on a fixed cadence.
type Worker struct {
	store  storage.Storage
	client classifier.Client
	log    *slog.Logger
	opts   Options
}

// New creates a Worker. Zero option fields get safe defaults.
func New(store storage.Storage, client classifier.Client, opts Options, log *slog.Logger) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	return &Worker{store: store, client: client, log: log, opts: opts}
}

// Run starts the draining loop, blocking until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.ProcessBatch(ctx)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch classifies one bounded batch of pending records. Records are
// processed independently: one failure never blocks or rolls back the others.
func (w *Worker) ProcessBatch(ctx context.Context) {
	recs, err := w.store.FetchPending(ctx, w.opts.BatchSize)
	if err != nil {
		w.log.Error("fetch pending", "error", err)
		return
	}
	if len(recs) == 0 {
		return
	}

	w.log.Info("processing batch", "count", len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Parallelism)
	for _, rec := range recs {
		rec := rec
		g.Go(func() error {
			w.processRecord(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) processRecord(ctx context.Context, rec model.Record) {
	verdict, err := w.classifyWithRetry(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-batch: leave the record pending for the next tick.
			return
		}
		w.log.Warn("classification failed", "id", rec.ID, "error", err)
		if err := w.store.MarkFailed(ctx, rec.ID); err != nil {
			w.logTransitionErr("mark failed", rec.ID, err)
		}
		return
	}

	if err := w.store.CommitClassification(ctx, rec.ID, verdict.Sentiment, verdict.FeedbackType); err != nil {
		w.logTransitionErr("commit classification", rec.ID, err)
		return
	}
	w.log.Debug("classified", "id", rec.ID, "sentiment", verdict.Sentiment, "type", verdict.FeedbackType)
}

// classifyWithRetry calls the classifier with capped exponential backoff.
// Only retryable failures (throttling, timeouts, server errors) are retried.
func (w *Worker) classifyWithRetry(ctx context.Context, rec model.Record) (classifier.Verdict, error) {
	backoff := retry.WithMaxRetries(uint64(w.opts.MaxAttempts-1),
		retry.WithCappedDuration(w.opts.MaxDelay, retry.NewExponential(w.opts.BaseDelay)))

	var verdict classifier.Verdict
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := w.client.Classify(ctx, rec.Subject, rec.Text)
		if err != nil {
			if classifier.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		verdict = v
		return nil
	})
	return verdict, err
}

// logTransitionErr contains invariant-guard errors: a record that already left
// the pending state (overlapping runs) is logged and skipped, never fatal.
func (w *Worker) logTransitionErr(op, id string, err error) {
	if errors.Is(err, storage.ErrInvalidTransition) || errors.Is(err, storage.ErrNotFound) {
		w.log.Warn(op+" skipped", "id", id, "reason", err)
		return
	}
	w.log.Error(op, "id", id, "error", err)
}
