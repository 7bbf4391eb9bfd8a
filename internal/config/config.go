// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default tracked subjects when TRACKED_SUBJECTS is not set.
var defaultSubjects = []string{"cora", "spiral", "sparkle", "monologue"}

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	AnthropicAPIKey  string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	MonitoredChats   []int64
	TrackedSubjects  []string
	ClassifierModel  string

	BatchInterval     time.Duration
	BatchSize         int
	BatchParallelism  int
	ClassifyAttempts  int
	ClassifyBaseDelay time.Duration
	ClassifyMaxDelay  time.Duration

	ReviewFeeds    map[string]string
	ReviewInterval time.Duration
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	allowedUsers, err := parseIDList("ALLOWED_USERS")
	if err != nil {
		return nil, err
	}
	monitoredChats, err := parseIDList("MONITORED_CHATS")
	if err != nil {
		return nil, err
	}

	subjects := defaultSubjects
	if raw := os.Getenv("TRACKED_SUBJECTS"); raw != "" {
		subjects = nil
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				subjects = append(subjects, s)
			}
		}
		if len(subjects) == 0 {
			return nil, fmt.Errorf("TRACKED_SUBJECTS must name at least one subject")
		}
	}

	model := os.Getenv("CLASSIFIER_MODEL")
	if model == "" {
		model = "claude-haiku-4-5-20251001"
	}

	batchMinutes, err := parseIntEnv("BATCH_INTERVAL_MINUTES", 60, 1, 1440)
	if err != nil {
		return nil, err
	}
	batchSize, err := parseIntEnv("BATCH_SIZE", 50, 1, 1000)
	if err != nil {
		return nil, err
	}
	parallelism, err := parseIntEnv("BATCH_PARALLELISM", 4, 1, 64)
	if err != nil {
		return nil, err
	}
	attempts, err := parseIntEnv("CLASSIFY_MAX_ATTEMPTS", 3, 1, 10)
	if err != nil {
		return nil, err
	}
	baseDelayMS, err := parseIntEnv("CLASSIFY_BASE_DELAY_MS", 1000, 1, 60000)
	if err != nil {
		return nil, err
	}
	maxDelayMS, err := parseIntEnv("CLASSIFY_MAX_DELAY_MS", 30000, 1, 300000)
	if err != nil {
		return nil, err
	}
	reviewMinutes, err := parseIntEnv("REVIEW_INTERVAL_MINUTES", 360, 1, 10080)
	if err != nil {
		return nil, err
	}

	reviewFeeds, err := parseReviewFeeds(os.Getenv("REVIEW_FEEDS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken:  token,
		AnthropicAPIKey:   apiKey,
		DatabasePath:      dbPath,
		LogLevel:          logLevel,
		AllowedUsers:      allowedUsers,
		MonitoredChats:    monitoredChats,
		TrackedSubjects:   subjects,
		ClassifierModel:   model,
		BatchInterval:     time.Duration(batchMinutes) * time.Minute,
		BatchSize:         batchSize,
		BatchParallelism:  parallelism,
		ClassifyAttempts:  attempts,
		ClassifyBaseDelay: time.Duration(baseDelayMS) * time.Millisecond,
		ClassifyMaxDelay:  time.Duration(maxDelayMS) * time.Millisecond,
		ReviewFeeds:       reviewFeeds,
		ReviewInterval:    time.Duration(reviewMinutes) * time.Minute,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatMonitored checks whether feedback is captured from the given chat.
// Returns true if the monitored list is empty (all chats watched).
func (c *Config) IsChatMonitored(chatID int64) bool {
	if len(c.MonitoredChats) == 0 {
		return true
	}
	for _, id := range c.MonitoredChats {
		if id == chatID {
			return true
		}
	}
	return false
}

func parseIDList(key string) ([]int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q in %s: %w", s, key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseIntEnv(key string, def, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("%s must be a number between %d and %d", key, min, max)
	}
	return v, nil
}

// parseReviewFeeds parses "subject=url,subject=url" into a map.
func parseReviewFeeds(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	feeds := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		subject, url, ok := strings.Cut(pair, "=")
		subject = strings.ToLower(strings.TrimSpace(subject))
		url = strings.TrimSpace(url)
		if !ok || subject == "" || url == "" {
			return nil, fmt.Errorf("invalid entry %q in REVIEW_FEEDS, want subject=url", pair)
		}
		feeds[subject] = url
	}
	if len(feeds) == 0 {
		return nil, nil
	}
	return feeds, nil
}
