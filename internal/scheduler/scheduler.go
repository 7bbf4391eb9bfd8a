// Package scheduler fires the daily feedback report at a fixed civil time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"feedback_bot/internal/model"
	"feedback_bot/internal/report"
	"feedback_bot/internal/storage"
)

const dateLayout = "2006-01-02"

// reportWindow is how far back a report looks from its fire time.
const reportWindow = 24 * time.Hour

// ErrNoTarget is returned when a report was computed but no delivery chat is
// configured. The summary accompanying it is still valid.
var ErrNoTarget = errors.New("no delivery target configured")

// Clock abstracts wall-clock time so tests can travel.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Sender is the interface for delivering report messages.
type Sender interface {
	SendMessage(chatID int64, text string)
}

// Scheduler checks the schedule once a minute and fires the daily report when
// the configured civil time is reached on a new date.
type Scheduler struct {
	store  storage.Storage
	agg    *report.Aggregator
	sender Sender
	clock  Clock
	log    *slog.Logger
	tick   time.Duration
}

// New creates a Scheduler with the system clock.
func New(store storage.Storage, agg *report.Aggregator, sender Sender, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		agg:    agg,
		sender: sender,
		clock:  systemClock{},
		log:    log,
		tick:   1 * time.Minute,
	}
}

// SetSender sets the delivery sender. The bot and the scheduler reference
// each other, so the sender is attached after both are constructed.
func (s *Scheduler) SetSender(sender Sender) {
	s.sender = sender
}

// SetClock overrides the wall clock (useful for testing).
func (s *Scheduler) SetClock(c Clock) {
	s.clock = c
}

// SetTickInterval overrides the default 1-minute check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.Check(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Check fires the daily report if it is due. Errors abort this tick only;
// the next tick retries from durable state.
func (s *Scheduler) Check(ctx context.Context) {
	cfg, err := s.store.GetScheduleConfig(ctx)
	if err != nil {
		s.log.Error("get schedule config", "error", err)
		return
	}

	now, err := s.civilNow(cfg)
	if err != nil {
		s.log.Error("resolve schedule time", "error", err)
		return
	}

	today := now.Format(dateLayout)
	if cfg.LastFiredDate == today {
		return
	}

	due, err := fireTimeOn(now, cfg.FireTime)
	if err != nil {
		s.log.Error("parse fire time", "fire_time", cfg.FireTime, "error", err)
		return
	}
	if now.Before(due) {
		return
	}

	summary, err := s.agg.Summarize(ctx, now.Add(-reportWindow), now, "")
	if err != nil {
		s.log.Error("summarize daily window", "error", err)
		return
	}

	if cfg.DeliveryChatID == 0 || s.sender == nil {
		// Reported condition, not a crash: mark the day done so the
		// no-target state is signalled once, not every minute.
		s.log.Warn("daily report ready but no delivery target configured", "total", summary.Total)
	} else {
		s.sender.SendMessage(cfg.DeliveryChatID, report.Format(summary))
		s.log.Info("daily report delivered", "chat_id", cfg.DeliveryChatID, "total", summary.Total)
	}

	if err := s.store.SetLastFiredDate(ctx, today); err != nil {
		s.log.Error("set last fired date", "error", err)
	}
}

// TriggerReport computes an on-demand summary over the report window, without
// touching the daily schedule state. When no delivery target is configured the
// summary is returned together with ErrNoTarget.
func (s *Scheduler) TriggerReport(ctx context.Context, subject string) (*report.Summary, error) {
	cfg, err := s.store.GetScheduleConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("get schedule config: %w", err)
	}

	now := s.clock.Now()
	summary, err := s.agg.Summarize(ctx, now.Add(-reportWindow), now, subject)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	if cfg.DeliveryChatID == 0 {
		return summary, ErrNoTarget
	}
	return summary, nil
}

// civilNow returns the current time in the configured timezone.
func (s *Scheduler) civilNow(cfg *model.ScheduleConfig) (time.Time, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return s.clock.Now().In(loc), nil
}

// fireTimeOn returns the fire time ("15:04") on now's civil date.
func fireTimeOn(now time.Time, fireTime string) (time.Time, error) {
	t, err := time.Parse("15:04", fireTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}
