// Package report computes and renders windowed feedback summaries.
package report

import (
	"context"
	"fmt"
	"time"

	"feedback_bot/internal/model"
	"feedback_bot/internal/storage"
)

// Summary is the aggregate view of one reporting window. Totals cover
// classified and failed records; failed records are excluded from the
// sentiment and type breakdowns. Pending records are left for a later window.
type Summary struct {
	Start   time.Time
	End     time.Time
	Subject string

	Total       int
	Failed      int
	BySubject   map[string]int
	ByType      map[model.FeedbackType]int
	BySentiment map[model.Sentiment]int
	Actionable  []model.Record
	Negative    []model.Record
}

// Aggregator reduces stored records into summaries.
type Aggregator struct {
	store storage.Storage
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(store storage.Storage) *Aggregator {
	return &Aggregator{store: store}
}

// Summarize computes the summary for captured_at in [start, end).
// An empty subject covers all subjects. The result is deterministic for
// identical store contents.
func (a *Aggregator) Summarize(ctx context.Context, start, end time.Time, subject string) (*Summary, error) {
	recs, err := a.store.QueryWindow(ctx, start, end, subject)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}

	s := &Summary{
		Start:       start,
		End:         end,
		Subject:     subject,
		BySubject:   make(map[string]int),
		ByType:      make(map[model.FeedbackType]int),
		BySentiment: make(map[model.Sentiment]int),
	}

	for _, rec := range recs {
		switch rec.Status {
		case model.StatusFailed:
			s.Total++
			s.Failed++
			s.BySubject[rec.Subject]++
		case model.StatusClassified:
			s.Total++
			s.BySubject[rec.Subject]++
			s.ByType[rec.FeedbackType]++
			s.BySentiment[rec.Sentiment]++
			if rec.Actionable {
				s.Actionable = append(s.Actionable, rec)
			}
			if rec.Sentiment == model.SentimentNegative {
				s.Negative = append(s.Negative, rec)
			}
		}
	}
	return s, nil
}
