package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var configEnvKeys = []string{
	"TELEGRAM_BOT_TOKEN", "ANTHROPIC_API_KEY", "DATABASE_PATH", "LOG_LEVEL",
	"ALLOWED_USERS", "MONITORED_CHATS", "TRACKED_SUBJECTS", "CLASSIFIER_MODEL",
	"BATCH_INTERVAL_MINUTES", "BATCH_SIZE", "BATCH_PARALLELISM",
	"CLASSIFY_MAX_ATTEMPTS", "CLASSIFY_BASE_DELAY_MS", "CLASSIFY_MAX_DELAY_MS",
	"REVIEW_FEEDS", "REVIEW_INTERVAL_MINUTES",
}

func defaultsWith(mutate func(*Config)) *Config {
	cfg := &Config{
		TelegramBotToken:  "tg-token",
		AnthropicAPIKey:   "api-key",
		DatabasePath:      "./data/bot.db",
		LogLevel:          "info",
		TrackedSubjects:   []string{"cora", "spiral", "sparkle", "monologue"},
		ClassifierModel:   "claude-haiku-4-5-20251001",
		BatchInterval:     60 * time.Minute,
		BatchSize:         50,
		BatchParallelism:  4,
		ClassifyAttempts:  3,
		ClassifyBaseDelay: time.Second,
		ClassifyMaxDelay:  30 * time.Second,
		ReviewInterval:    360 * time.Minute,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{"ANTHROPIC_API_KEY": "api-key"},
			wantErr: true,
		},
		{
			name:    "missing api key",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tg-token"},
			wantErr: true,
		},
		{
			name: "required only, defaults applied",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tg-token",
				"ANTHROPIC_API_KEY":  "api-key",
			},
			want: defaultsWith(nil),
		},
		{
			name: "lists and overrides",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":     "tg-token",
				"ANTHROPIC_API_KEY":      "api-key",
				"DATABASE_PATH":          "/tmp/bot.db",
				"LOG_LEVEL":              "debug",
				"ALLOWED_USERS":          "111, 222 ,",
				"MONITORED_CHATS":        "-1001,42",
				"TRACKED_SUBJECTS":       "Cora, Nimbus",
				"BATCH_INTERVAL_MINUTES": "15",
				"BATCH_SIZE":             "10",
			},
			want: defaultsWith(func(c *Config) {
				c.DatabasePath = "/tmp/bot.db"
				c.LogLevel = "debug"
				c.AllowedUsers = []int64{111, 222}
				c.MonitoredChats = []int64{-1001, 42}
				c.TrackedSubjects = []string{"cora", "nimbus"}
				c.BatchInterval = 15 * time.Minute
				c.BatchSize = 10
			}),
		},
		{
			name: "review feeds",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tg-token",
				"ANTHROPIC_API_KEY":  "api-key",
				"REVIEW_FEEDS":       "cora=https://example.com/cora.xml, spiral=https://example.com/spiral.xml",
			},
			want: defaultsWith(func(c *Config) {
				c.ReviewFeeds = map[string]string{
					"cora":   "https://example.com/cora.xml",
					"spiral": "https://example.com/spiral.xml",
				}
			}),
		},
		{
			name: "invalid user id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tg-token",
				"ANTHROPIC_API_KEY":  "api-key",
				"ALLOWED_USERS":      "123,abc",
			},
			wantErr: true,
		},
		{
			name: "invalid review feed entry",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tg-token",
				"ANTHROPIC_API_KEY":  "api-key",
				"REVIEW_FEEDS":       "no-equals-sign",
			},
			wantErr: true,
		},
		{
			name: "batch interval out of range",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":     "tg-token",
				"ANTHROPIC_API_KEY":      "api-key",
				"BATCH_INTERVAL_MINUTES": "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear relevant env vars
			for _, key := range configEnvKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{
			name:         "empty list allows everyone",
			allowedUsers: nil,
			userID:       42,
			want:         true,
		},
		{
			name:         "user in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       20,
			want:         true,
		},
		{
			name:         "user not in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       99,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{AllowedUsers: tt.allowedUsers}
			if got := c.IsUserAllowed(tt.userID); got != tt.want {
				t.Errorf("IsUserAllowed(%d) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestIsChatMonitored(t *testing.T) {
	tests := []struct {
		name   string
		chats  []int64
		chatID int64
		want   bool
	}{
		{
			name:   "empty list watches everything",
			chats:  nil,
			chatID: -1001,
			want:   true,
		},
		{
			name:   "chat in list",
			chats:  []int64{-1001, -1002},
			chatID: -1002,
			want:   true,
		},
		{
			name:   "chat not in list",
			chats:  []int64{-1001, -1002},
			chatID: 77,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{MonitoredChats: tt.chats}
			if got := c.IsChatMonitored(tt.chatID); got != tt.want {
				t.Errorf("IsChatMonitored(%d) = %v, want %v", tt.chatID, got, tt.want)
			}
		})
	}
}
