package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	maxTokens      = 256
	callTimeout    = 30 * time.Second
)

const systemPrompt = `You analyze chat messages with feedback about our apps.
Classify the feedback and return JSON only:
{
  "sentiment": "positive" | "negative" | "neutral" | "mixed",
  "feedback_type": "bug" | "feature_request" | "praise" | "complaint" | "question" | "general"
}

Examples:
- "Cora keeps crashing when I try to export" -> {"sentiment": "negative", "feedback_type": "bug"}
- "I love how Spiral organizes my thoughts!" -> {"sentiment": "positive", "feedback_type": "praise"}
- "Can Monologue add dark mode?" -> {"sentiment": "neutral", "feedback_type": "feature_request"}`

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Anthropic implements Client against the Anthropic messages API.
type Anthropic struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// NewAnthropic creates a classifier client with the default HTTP client.
func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		client:  http.DefaultClient,
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: callTimeout,
	}
}

// NewAnthropicWithClient creates a classifier client with a custom HTTP
// client and base URL (useful for testing).
func NewAnthropicWithClient(client HTTPClient, baseURL, apiKey, model string) *Anthropic {
	return &Anthropic{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: callTimeout,
	}
}

type messageRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Classify sends one record's text to the model and parses the verdict.
func (a *Anthropic) Classify(ctx context.Context, subject, text string) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := json.Marshal(messageRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []chatMessage{{
			Role:    "user",
			Content: fmt.Sprintf("Analyze this feedback about %s:\n\n%s", subject, text),
		}},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("classifier request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return Verdict{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, &APIError{StatusCode: resp.StatusCode, Message: truncate(string(respBody), 200)}
	}

	var msg messageResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return Verdict{}, fmt.Errorf("decode response: %w", err)
	}

	var completion string
	for _, block := range msg.Content {
		if block.Type == "text" {
			completion = block.Text
			break
		}
	}
	return ParseVerdict(completion), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
