package report

import (
	"fmt"
	"sort"
	"strings"

	"feedback_bot/internal/model"
)

const maxListedRecords = 10

// Format renders a summary as a chat message.
func Format(s *Summary) string {
	var b strings.Builder

	title := "Feedback summary"
	if s.Subject != "" {
		title = fmt.Sprintf("Feedback summary for %s", s.Subject)
	}
	fmt.Fprintf(&b, "%s (%s — %s)\n", title,
		s.Start.UTC().Format("Jan 2 15:04"), s.End.UTC().Format("Jan 2 15:04 MST"))

	if s.Total == 0 {
		b.WriteString("\nNothing new found. Check back later.")
		return b.String()
	}

	fmt.Fprintf(&b, "\nTotal: %d", s.Total)
	if s.Failed > 0 {
		fmt.Fprintf(&b, " (%d unclassifiable)", s.Failed)
	}
	b.WriteString("\n")

	if len(s.BySubject) > 0 {
		b.WriteString("\nBy app:\n")
		for _, k := range sortedKeys(s.BySubject) {
			fmt.Fprintf(&b, "  %s: %d\n", k, s.BySubject[k])
		}
	}

	if len(s.BySentiment) > 0 {
		b.WriteString("\nSentiment:\n")
		for _, sentiment := range []model.Sentiment{
			model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral, model.SentimentMixed,
		} {
			if n := s.BySentiment[sentiment]; n > 0 {
				fmt.Fprintf(&b, "  %s: %d\n", sentiment, n)
			}
		}
	}

	b.WriteString("\n🚨 Needs attention:\n")
	writeRecordList(&b, s.Negative)

	b.WriteString("\n💬 Actionable:\n")
	writeRecordList(&b, s.Actionable)

	return b.String()
}

func writeRecordList(b *strings.Builder, recs []model.Record) {
	if len(recs) == 0 {
		b.WriteString("  Nothing notable today\n")
		return
	}
	shown := recs
	if len(shown) > maxListedRecords {
		shown = shown[:maxListedRecords]
	}
	for _, rec := range shown {
		fmt.Fprintf(b, "  [%s/%s] %s — %s\n", rec.Subject, rec.FeedbackType,
			firstLine(rec.Text, 120), rec.AuthorName)
		if rec.Link != "" {
			fmt.Fprintf(b, "    %s\n", rec.Link)
		}
	}
	if len(recs) > maxListedRecords {
		fmt.Fprintf(b, "  ...and %d more\n", len(recs)-maxListedRecords)
	}
}

func firstLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
