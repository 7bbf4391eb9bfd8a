package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"feedback_bot/internal/model"
)

func TestFormatRecentEmpty(t *testing.T) {
	if got := FormatRecent(nil, ""); got != "No recent feedback." {
		t.Errorf("got %q", got)
	}
	if got := FormatRecent(nil, "cora"); got != "No recent feedback about cora." {
		t.Errorf("got %q", got)
	}
}

func TestFormatRecentLabels(t *testing.T) {
	recs := []model.Record{
		{
			ID: "m1:cora", Subject: "cora", Text: "cora crashes on export",
			AuthorName: "alice", Link: "https://t.me/c/1001/1",
			Status: model.StatusClassified, Sentiment: model.SentimentNegative, FeedbackType: model.TypeBug,
		},
		{
			ID: "m2:cora", Subject: "cora", Text: "@#!$ unparseable",
			AuthorName: "bob",
			Status:     model.StatusFailed,
		},
		{
			ID: "m3:spiral", Subject: "spiral", Text: "waiting for classification",
			AuthorName: "carol",
			Status:     model.StatusPending,
		},
	}

	got := FormatRecent(recs, "")
	for _, want := range []string{
		"Recent feedback:",
		"bug/negative",
		"unclassified",
		"pending",
		"cora crashes on export",
		"https://t.me/c/1001/1",
		"alice",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatRecentCapsListing(t *testing.T) {
	var recs []model.Record
	for i := 0; i < 15; i++ {
		recs = append(recs, model.Record{
			ID:         fmt.Sprintf("m%d:cora", i),
			Subject:    "cora",
			Text:       fmt.Sprintf("message %d", i),
			AuthorName: "alice",
			CapturedAt: time.Date(2026, 9, 1, 12, i, 0, 0, time.UTC),
			Status:     model.StatusPending,
		})
	}

	got := FormatRecent(recs, "cora")
	if !strings.Contains(got, "...and 5 more") {
		t.Errorf("output missing overflow marker:\n%s", got)
	}
	if strings.Contains(got, "message 12") {
		t.Errorf("output lists more than %d records:\n%s", maxRecentShown, got)
	}
}

func TestFormatRecentSnippetTruncation(t *testing.T) {
	recs := []model.Record{{
		ID: "m1:cora", Subject: "cora",
		Text:       "first line\nsecond line should not appear",
		AuthorName: "alice",
		Status:     model.StatusPending,
	}}

	got := FormatRecent(recs, "")
	if !strings.Contains(got, "first line") {
		t.Errorf("output missing first line:\n%s", got)
	}
	if strings.Contains(got, "second line") {
		t.Errorf("snippet crossed a line break:\n%s", got)
	}
}
