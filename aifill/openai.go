package aifill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"carousel-studio/core"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com"
	DefaultOpenAIModel   = "gpt-4o-mini"

	defaultTimeout     = 2 * time.Minute
	defaultRateLimit   = 1.0
	defaultBurst       = 3
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxTokens   = 2048
)

// OpenAI chat-completions wire types.

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      *bool         `json:"stream"`
}

type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIConfig configures an OpenAIGenerator. Zero values select defaults.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	// MaxRetries of zero selects the default; a negative value disables retries.
	MaxRetries int
	// BaseBackoff is the first retry delay; it doubles on each attempt.
	BaseBackoff time.Duration
	HTTPClient  *http.Client
}

// OpenAIGenerator generates slot content through an OpenAI-compatible
// /v1/chat/completions endpoint.
type OpenAIGenerator struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	log         logrus.FieldLogger
}

// NewOpenAIGenerator creates a generator. An API key is required.
func NewOpenAIGenerator(cfg OpenAIConfig, log logrus.FieldLogger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	g := &OpenAIGenerator{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		httpClient:  cfg.HTTPClient,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
		log:         log,
	}
	if g.baseURL == "" {
		g.baseURL = DefaultOpenAIBaseURL
	}
	if g.model == "" {
		g.model = DefaultOpenAIModel
	}
	if g.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		g.httpClient = &http.Client{Timeout: timeout}
	}
	if g.maxRetries < 0 {
		g.maxRetries = 0
	} else if cfg.MaxRetries == 0 {
		g.maxRetries = defaultMaxRetries
	}
	if g.baseBackoff <= 0 {
		g.baseBackoff = defaultBaseBackoff
	}

	limit, burst := cfg.RateLimit, cfg.Burst
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	g.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	return g, nil
}

// Generate asks the model for one piece of copy per slot. Every failure,
// including transport errors and malformed replies, comes back as an
// unsuccessful GenerationResponse.
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return failed("rate limiter: %v", err), nil
	}

	maxTokens := defaultMaxTokens
	stream := false
	body := ChatCompletionRequest{
		Model: g.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
		MaxTokens:   &maxTokens,
		Temperature: 0.7,
		Stream:      &stream,
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return failed("generation cancelled: %v", ctx.Err()), nil
			}
		}

		text, err := g.complete(ctx, body)
		if err == nil {
			slots, perr := ParseSlots(text)
			if perr != nil {
				return failed("malformed model output: %v", perr), nil
			}
			g.log.WithFields(logrus.Fields{
				"template": req.TemplateAnalysis.TemplateName,
				"slots":    len(slots),
				"attempt":  attempt + 1,
			}).Debug("Generated slot content")
			return &GenerationResponse{Success: true, Slots: slots}, nil
		}

		lastErr = err
		var re *retryableError
		if !errors.As(err, &re) {
			break
		}
		g.log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Retrying content generation")
	}
	return failed("%v", lastErr), nil
}

func failed(format string, args ...any) *GenerationResponse {
	return &GenerationResponse{Success: false, Error: fmt.Sprintf(format, args...)}
}

// complete performs one chat-completions call and returns the first choice.
func (g *OpenAIGenerator) complete(ctx context.Context, body ChatCompletionRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &retryableError{err: fmt.Errorf("rate limited (429)")}
	case resp.StatusCode >= 500:
		return "", &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, truncate(string(data), 200))}
	case resp.StatusCode != http.StatusOK:
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, truncate(string(data), 200))
	}

	var out ChatCompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}
	return out.Choices[0].Message.Content, nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ParseSlots extracts slot content from model output. It accepts a bare JSON
// array, an object with a "slots" array, and either wrapped in a markdown
// code fence.
func ParseSlots(text string) ([]core.GeneratedSlotContent, error) {
	text = stripFences(text)
	if text == "" {
		return nil, fmt.Errorf("empty output")
	}

	var slots []core.GeneratedSlotContent
	switch text[0] {
	case '[':
		if err := json.Unmarshal([]byte(text), &slots); err != nil {
			return nil, err
		}
	case '{':
		var wrapped struct {
			Slots []core.GeneratedSlotContent `json:"slots"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Slots == nil {
			return nil, fmt.Errorf("object has no slots array")
		}
		slots = wrapped.Slots
	default:
		start, end := strings.Index(text, "["), strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON array in output")
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &slots); err != nil {
			return nil, err
		}
	}
	if slots == nil {
		slots = []core.GeneratedSlotContent{}
	}
	return slots, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
