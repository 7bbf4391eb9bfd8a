// Package classifier wraps the semantic feedback classifier.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"feedback_bot/internal/model"
)

// Verdict is the structured classification of one record's text.
type Verdict struct {
	Sentiment    model.Sentiment
	FeedbackType model.FeedbackType
}

// Client classifies feedback text about a subject.
type Client interface {
	Classify(ctx context.Context, subject, text string) (Verdict, error)
}

// APIError is a failed call to the classifier backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("classifier API status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the failure is worth retrying: throttling and
// server-side errors are, malformed requests are not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err should be retried with backoff.
// Timeouts and cancellations are transient; API errors decide for themselves.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// rawVerdict mirrors the JSON the model is asked to produce.
type rawVerdict struct {
	Sentiment    string `json:"sentiment"`
	FeedbackType string `json:"feedback_type"`
}

// ParseVerdict extracts a verdict from the model's completion text.
// Unrecognized vocabulary fails closed to neutral/general so every completion
// yields a committable result.
func ParseVerdict(text string) Verdict {
	raw := rawVerdict{}
	payload := extractJSON(text)
	if payload != "" {
		_ = json.Unmarshal([]byte(payload), &raw)
	}
	return Verdict{
		Sentiment:    normalizeSentiment(raw.Sentiment),
		FeedbackType: normalizeType(raw.FeedbackType),
	}
}

// extractJSON returns the first {...} object in text, tolerating prose around
// the JSON the model was asked for.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return ""
	}
	return text[start : end+1]
}

func normalizeSentiment(s string) model.Sentiment {
	switch model.Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case model.SentimentPositive:
		return model.SentimentPositive
	case model.SentimentNegative:
		return model.SentimentNegative
	case model.SentimentMixed:
		return model.SentimentMixed
	default:
		return model.SentimentNeutral
	}
}

func normalizeType(s string) model.FeedbackType {
	switch model.FeedbackType(strings.ToLower(strings.TrimSpace(s))) {
	case model.TypeBug:
		return model.TypeBug
	case model.TypeFeatureRequest:
		return model.TypeFeatureRequest
	case model.TypePraise:
		return model.TypePraise
	case model.TypeComplaint:
		return model.TypeComplaint
	case model.TypeQuestion:
		return model.TypeQuestion
	default:
		return model.TypeGeneral
	}
}
