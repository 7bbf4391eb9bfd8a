package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"feedback_bot/internal/model"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id, subject string, capturedAt time.Time) *model.Record {
	return &model.Record{
		ID:          id,
		Subject:     subject,
		Text:        "Cora keeps crashing when I try to export",
		ChannelID:   -1001,
		ChannelName: "discussions",
		AuthorName:  "testuser",
		Link:        "https://t.me/c/1001/42",
		CapturedAt:  capturedAt,
		Status:      model.StatusPending,
	}
}

func TestInsertRecordDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	rec := testRecord("chat:1:cora", "cora", now)
	if err := s.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Redelivery of the same source event must not create a second record.
	replay := testRecord("chat:1:cora", "cora", now)
	replay.Text = "different text on replay"
	if err := s.InsertRecord(ctx, replay); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	got, err := s.QueryRecent(ctx, "", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("query recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if diff := cmp.Diff(*rec, got[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPendingOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := testRecord(fmt.Sprintf("chat:%d:cora", i), "cora", now)
		if err := s.InsertRecord(ctx, rec); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	// A classified record must not be drained again.
	if err := s.CommitClassification(ctx, "chat:0:cora", model.SentimentNegative, model.TypeBug); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.FetchPending(ctx, 3)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}

	wantIDs := []string{"chat:1:cora", "chat:2:cora", "chat:3:cora"}
	var gotIDs []string
	for _, r := range got {
		gotIDs = append(gotIDs, r.ID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("pending order mismatch (-want +got):\n%s", diff)
	}
}

func TestCommitClassification(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	rec := testRecord("chat:1:cora", "cora", now)
	if err := s.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.CommitClassification(ctx, rec.ID, model.SentimentNegative, model.TypeBug); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.QueryRecent(ctx, "", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("query recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}

	want := *rec
	want.Status = model.StatusClassified
	want.Sentiment = model.SentimentNegative
	want.FeedbackType = model.TypeBug
	want.Actionable = true
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("classified record mismatch (-want +got):\n%s", diff)
	}

	// Double commit from an overlapping batch run must be rejected.
	err = s.CommitClassification(ctx, rec.ID, model.SentimentPositive, model.TypePraise)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCommitClassificationNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	err := s.CommitClassification(ctx, "missing", model.SentimentNeutral, model.TypeGeneral)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkFailed(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	rec := testRecord("chat:1:cora", "cora", now)
	if err := s.InsertRecord(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkFailed(ctx, rec.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	got, err := s.QueryRecent(ctx, "", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("query recent: %v", err)
	}
	if got[0].Status != model.StatusFailed {
		t.Errorf("status = %s, want %s", got[0].Status, model.StatusFailed)
	}
	if got[0].Sentiment != "" || got[0].FeedbackType != "" {
		t.Errorf("failed record should keep verdict unset, got %q/%q", got[0].Sentiment, got[0].FeedbackType)
	}

	if err := s.MarkFailed(ctx, rec.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second mark, got %v", err)
	}
	if err := s.CommitClassification(ctx, rec.ID, model.SentimentNeutral, model.TypeGeneral); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after failure, got %v", err)
	}
}

func TestQueryWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	times := []time.Time{
		base.Add(-time.Minute), // before window
		base,                   // start is inclusive
		base.Add(30 * time.Minute),
		base.Add(time.Hour), // end is exclusive
	}
	subjects := []string{"cora", "cora", "spiral", "cora"}
	for i, ts := range times {
		rec := testRecord(fmt.Sprintf("chat:%d:x", i), subjects[i], ts)
		if err := s.InsertRecord(ctx, rec); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	got, err := s.QueryWindow(ctx, base, base.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("query window: %v", err)
	}
	var gotIDs []string
	for _, r := range got {
		gotIDs = append(gotIDs, r.ID)
	}
	if diff := cmp.Diff([]string{"chat:1:x", "chat:2:x"}, gotIDs); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}

	got, err = s.QueryWindow(ctx, base, base.Add(time.Hour), "spiral")
	if err != nil {
		t.Fatalf("query window with subject: %v", err)
	}
	if len(got) != 1 || got[0].ID != "chat:2:x" {
		t.Errorf("subject filter mismatch, got %v", got)
	}
}

func TestQueryRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := testRecord(fmt.Sprintf("chat:%d:cora", i), "cora", base.Add(time.Duration(i)*time.Minute))
		if err := s.InsertRecord(ctx, rec); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	got, err := s.QueryRecent(ctx, "cora", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("query recent: %v", err)
	}
	var gotIDs []string
	for _, r := range got {
		gotIDs = append(gotIDs, r.ID)
	}
	if diff := cmp.Diff([]string{"chat:2:cora", "chat:1:cora"}, gotIDs); diff != "" {
		t.Errorf("recent order mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduleConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	cfg, err := s.GetScheduleConfig(ctx)
	if err != nil {
		t.Fatalf("get schedule config: %v", err)
	}

	want := &model.ScheduleConfig{
		DeliveryChatID: 0,
		FireTime:       "08:00",
		Timezone:       "America/New_York",
		LastFiredDate:  "",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("seeded config mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetDeliveryTarget(ctx, -1005); err != nil {
		t.Fatalf("set delivery target: %v", err)
	}
	if err := s.SetLastFiredDate(ctx, "2026-09-01"); err != nil {
		t.Fatalf("set last fired date: %v", err)
	}

	cfg, err = s.GetScheduleConfig(ctx)
	if err != nil {
		t.Fatalf("get schedule config: %v", err)
	}
	if cfg.DeliveryChatID != -1005 || cfg.LastFiredDate != "2026-09-01" {
		t.Errorf("updated config = %+v", cfg)
	}
}
