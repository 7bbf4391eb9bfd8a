// Package model defines the domain types used across the application.
package model

import "time"

// Status describes where a feedback record is in the classification pipeline.
type Status string

// Record lifecycle states.
const (
	StatusPending    Status = "pending"
	StatusClassified Status = "classified"
	StatusFailed     Status = "failed"
)

// Sentiment is the classifier's sentiment verdict. Empty until classified.
type Sentiment string

// Supported sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// FeedbackType is the classifier's category verdict. Empty until classified.
type FeedbackType string

// Supported feedback types.
const (
	TypeBug            FeedbackType = "bug"
	TypeFeatureRequest FeedbackType = "feature_request"
	TypePraise         FeedbackType = "praise"
	TypeComplaint      FeedbackType = "complaint"
	TypeQuestion       FeedbackType = "question"
	TypeGeneral        FeedbackType = "general"
)

// Actionable reports whether the feedback type warrants follow-up work.
func (t FeedbackType) Actionable() bool {
	return t == TypeBug || t == TypeFeatureRequest
}

// Record is one captured piece of feedback about a tracked subject.
// A message mentioning several subjects produces one record per subject.
type Record struct {
	ID           string
	Subject      string
	Text         string
	ChannelID    int64
	ChannelName  string
	AuthorName   string
	Link         string
	CapturedAt   time.Time
	Status       Status
	Sentiment    Sentiment
	FeedbackType FeedbackType
	Actionable   bool
}

// ScheduleConfig is the single-row daily report schedule state.
// LastFiredDate is a civil date ("2006-01-02") in the configured timezone;
// empty means the report has never fired.
type ScheduleConfig struct {
	DeliveryChatID int64
	FireTime       string
	Timezone       string
	LastFiredDate  string
}
