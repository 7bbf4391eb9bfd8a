// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"feedback_bot/internal/model"
)

// Sentinel errors for record operations. DuplicateID is benign: the transport
// delivers at least once, so replayed events are expected. NotFound and
// InvalidTransition guard against double commits from overlapping batch runs.
var (
	ErrDuplicateID       = errors.New("record ID already exists")
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("record is not pending")
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// InsertRecord persists a new pending record. Returns ErrDuplicateID if a
	// record with the same ID already exists.
	InsertRecord(ctx context.Context, rec *model.Record) error

	// FetchPending returns up to limit pending records in insertion order.
	FetchPending(ctx context.Context, limit int) ([]model.Record, error)

	// CommitClassification transitions a pending record to classified and sets
	// its verdict. Actionable is derived from the feedback type.
	CommitClassification(ctx context.Context, id string, sentiment model.Sentiment, feedbackType model.FeedbackType) error

	// MarkFailed transitions a pending record to failed.
	MarkFailed(ctx context.Context, id string) error

	// QueryWindow returns records with captured_at in [start, end), oldest
	// first. An empty subject matches all subjects.
	QueryWindow(ctx context.Context, start, end time.Time, subject string) ([]model.Record, error)

	// QueryRecent returns records with captured_at >= since, newest first.
	// An empty subject matches all subjects.
	QueryRecent(ctx context.Context, subject string, since time.Time) ([]model.Record, error)

	GetScheduleConfig(ctx context.Context) (*model.ScheduleConfig, error)
	SetDeliveryTarget(ctx context.Context, chatID int64) error
	SetLastFiredDate(ctx context.Context, date string) error

	Close() error
}
