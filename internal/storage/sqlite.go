package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"feedback_bot/internal/model"
	"feedback_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertRecord persists a record with status pending.
func (s *SQLite) InsertRecord(ctx context.Context, rec *model.Record) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO feedback
		   (id, subject, text, channel_id, channel_name, author_name, link, captured_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Subject, rec.Text, rec.ChannelID, rec.ChannelName, rec.AuthorName,
		rec.Link, rec.CapturedAt.UTC().Format(timeLayout), string(model.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrDuplicateID
	}
	rec.Status = model.StatusPending
	return nil
}

// FetchPending returns up to limit pending records in insertion order.
// No lock is held: the pending -> classified/failed transition is guarded by
// the status check in the update statements.
func (s *SQLite) FetchPending(ctx context.Context, limit int) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM feedback WHERE status = ? ORDER BY rowid LIMIT ?`,
		string(model.StatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

// CommitClassification transitions a pending record to classified.
func (s *SQLite) CommitClassification(ctx context.Context, id string, sentiment model.Sentiment, feedbackType model.FeedbackType) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET status = ?, sentiment = ?, feedback_type = ?, actionable = ?
		 WHERE id = ? AND status = ?`,
		string(model.StatusClassified), string(sentiment), string(feedbackType),
		boolToInt(feedbackType.Actionable()), id, string(model.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("commit classification: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// MarkFailed transitions a pending record to failed.
func (s *SQLite) MarkFailed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET status = ? WHERE id = ? AND status = ?`,
		string(model.StatusFailed), id, string(model.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// checkTransition distinguishes a missing record from one that already left
// the pending state when a guarded update matched no rows.
func (s *SQLite) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE id = ?`, id,
	).Scan(&count); err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

// QueryWindow returns records captured in [start, end), oldest first.
func (s *SQLite) QueryWindow(ctx context.Context, start, end time.Time, subject string) ([]model.Record, error) {
	query := selectColumns + ` FROM feedback WHERE captured_at >= ? AND captured_at < ?`
	args := []any{start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)}
	if subject != "" {
		query += ` AND subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY captured_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

// QueryRecent returns records captured at or after since, newest first.
func (s *SQLite) QueryRecent(ctx context.Context, subject string, since time.Time) ([]model.Record, error) {
	query := selectColumns + ` FROM feedback WHERE captured_at >= ?`
	args := []any{since.UTC().Format(timeLayout)}
	if subject != "" {
		query += ` AND subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY captured_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

// GetScheduleConfig returns the single schedule configuration row.
func (s *SQLite) GetScheduleConfig(ctx context.Context) (*model.ScheduleConfig, error) {
	var cfg model.ScheduleConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT delivery_chat_id, fire_time, timezone, last_fired_date
		 FROM schedule_config WHERE id = 1`,
	).Scan(&cfg.DeliveryChatID, &cfg.FireTime, &cfg.Timezone, &cfg.LastFiredDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule config row missing: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule config: %w", err)
	}
	return &cfg, nil
}

// SetDeliveryTarget updates the chat that receives the daily report.
func (s *SQLite) SetDeliveryTarget(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE schedule_config SET delivery_chat_id = ? WHERE id = 1`, chatID,
	)
	if err != nil {
		return fmt.Errorf("set delivery target: %w", err)
	}
	return nil
}

// SetLastFiredDate records the civil date of the last daily report.
func (s *SQLite) SetLastFiredDate(ctx context.Context, date string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE schedule_config SET last_fired_date = ? WHERE id = 1`, date,
	)
	if err != nil {
		return fmt.Errorf("set last fired date: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, subject, text, channel_id, channel_name, author_name,
	link, captured_at, status, sentiment, feedback_type, actionable`

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	var recs []model.Record
	for rows.Next() {
		var r model.Record
		var capturedStr, statusStr, sentimentStr, typeStr string
		var actionable int
		err := rows.Scan(&r.ID, &r.Subject, &r.Text, &r.ChannelID, &r.ChannelName,
			&r.AuthorName, &r.Link, &capturedStr, &statusStr, &sentimentStr, &typeStr, &actionable)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.CapturedAt, _ = time.Parse(timeLayout, capturedStr)
		r.Status = model.Status(statusStr)
		r.Sentiment = model.Sentiment(sentimentStr)
		r.FeedbackType = model.FeedbackType(typeStr)
		r.Actionable = actionable == 1
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
