package bot

import (
	"fmt"
	"strings"

	"feedback_bot/internal/model"
)

const maxRecentShown = 10

// FormatRecent formats the recent-feedback view, newest first. Failed records
// are shown so operators can see unclassifiable content.
func FormatRecent(recs []model.Record, subject string) string {
	if len(recs) == 0 {
		if subject != "" {
			return fmt.Sprintf("No recent feedback about %s.", subject)
		}
		return "No recent feedback."
	}

	var b strings.Builder
	if subject != "" {
		fmt.Fprintf(&b, "Recent feedback about %s:\n", subject)
	} else {
		b.WriteString("Recent feedback:\n")
	}

	shown := recs
	if len(shown) > maxRecentShown {
		shown = shown[:maxRecentShown]
	}
	for _, rec := range shown {
		fmt.Fprintf(&b, "\n[%s] %s — %s\n", rec.Subject, recordLabel(rec), rec.AuthorName)
		fmt.Fprintf(&b, "%s\n", snippet(rec.Text))
		if rec.Link != "" {
			fmt.Fprintf(&b, "%s\n", rec.Link)
		}
	}
	if len(recs) > maxRecentShown {
		fmt.Fprintf(&b, "\n...and %d more", len(recs)-maxRecentShown)
	}
	return b.String()
}

func recordLabel(rec model.Record) string {
	switch rec.Status {
	case model.StatusClassified:
		return fmt.Sprintf("%s/%s", rec.FeedbackType, rec.Sentiment)
	case model.StatusFailed:
		return "unclassified"
	default:
		return "pending"
	}
}

func snippet(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) > 160 {
		return string(runes[:160]) + "..."
	}
	return text
}
