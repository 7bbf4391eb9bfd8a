// Package reviews ingests App Store review feeds as feedback records.
package reviews

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"feedback_bot/internal/model"
	"feedback_bot/internal/storage"
)

const maxReviewText = 1000

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Poller periodically fetches review feeds and inserts pending records.
// Records enter the same classification pipeline as chat messages.
type Poller struct {
	store    storage.Storage
	client   HTTPClient
	feeds    map[string]string
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// New creates a Poller for the given subject -> feed URL map.
func New(store storage.Storage, client HTTPClient, feeds map[string]string, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Poller{
		store:    store,
		client:   client,
		feeds:    feeds,
		log:      log,
		interval: interval,
		timeout:  30 * time.Second,
	}
}

// Run starts the polling loop, blocking until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.PollAll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollAll(ctx)
		}
	}
}

// PollAll fetches every configured feed once. Failures are contained per feed.
func (p *Poller) PollAll(ctx context.Context) {
	for subject, url := range p.feeds {
		if ctx.Err() != nil {
			return
		}
		inserted, err := p.pollFeed(ctx, subject, url)
		if err != nil {
			p.log.Error("poll review feed", "subject", subject, "url", url, "error", err)
			continue
		}
		if inserted > 0 {
			p.log.Info("captured reviews", "subject", subject, "count", inserted)
		}
	}
}

func (p *Poller) pollFeed(ctx context.Context, subject, url string) (int, error) {
	feed, err := p.fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, item := range feed.Items {
		rec := recordFromItem(subject, item)
		err := p.store.InsertRecord(ctx, rec)
		if errors.Is(err, storage.ErrDuplicateID) {
			continue
		}
		if err != nil {
			p.log.Error("insert review", "id", rec.ID, "error", err)
			continue
		}
		inserted++
	}
	return inserted, nil
}

func (p *Poller) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "FeedbackBot/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// recordFromItem maps one review entry to a pending feedback record.
func recordFromItem(subject string, item *gofeed.Item) *model.Record {
	text := strings.TrimSpace(item.Title)
	if desc := strings.TrimSpace(item.Description); desc != "" {
		if text != "" {
			text += "\n"
		}
		text += desc
	}
	if runes := []rune(text); len(runes) > maxReviewText {
		text = string(runes[:maxReviewText])
	}

	captured := time.Now().UTC()
	if item.PublishedParsed != nil {
		captured = item.PublishedParsed.UTC()
	}

	author := ""
	if item.Author != nil {
		author = item.Author.Name
	}

	return &model.Record{
		ID:          fmt.Sprintf("review:%s:%s", subject, itemGUID(item)),
		Subject:     subject,
		Text:        text,
		ChannelName: "app-store",
		AuthorName:  author,
		Link:        item.Link,
		CapturedAt:  captured,
		Status:      model.StatusPending,
	}
}

// itemGUID returns the GUID for a review entry.
// If the entry has no GUID, a SHA-256 hash of title+link is used.
func itemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}
