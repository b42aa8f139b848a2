// Package llm converts free-form model output into schema-shaped JSON. It
// owns prompt size limits, retry with backoff, and the extraction/repair
// ladder; provider transport lives in internal/llmclient.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"repolens/internal/jsonx"
	"repolens/internal/llmclient"
)

const (
	// MaxPromptChars is the hard ceiling on prompt size. Larger prompts fail
	// fast without touching the provider.
	MaxPromptChars = 100_000

	defaultMaxAttempts = 3
	defaultBackoff     = time.Second
)

// Request is one structured completion call.
type Request struct {
	Prompt string
	Schema Schema
	System string
}

// Client turns prompts into parsed JSON documents over a single provider.
type Client struct {
	provider llmclient.Client

	// MaxAttempts counts total provider calls per request (retries + 1).
	MaxAttempts int
	// Backoff is the base delay; attempt n sleeps Backoff × n.
	Backoff time.Duration
	// MaxPromptChars overrides the prompt ceiling when > 0.
	MaxPromptChars int
	Logger         *log.Logger
}

// NewClient returns a structured client over the first usable provider.
// Later providers are availability fallbacks for when earlier ones failed to
// initialize; they are never consulted per call.
func NewClient(providers ...llmclient.Client) (*Client, error) {
	for _, p := range providers {
		if p != nil {
			return &Client{
				provider:    p,
				MaxAttempts: defaultMaxAttempts,
				Backoff:     defaultBackoff,
				Logger:      log.Default(),
			}, nil
		}
	}
	return nil, errors.New("llm: no provider available")
}

// Provider reports the active provider's name.
func (c *Client) Provider() string { return c.provider.Name() }

// Close releases the underlying provider.
func (c *Client) Close() error { return c.provider.Close() }

// GenerateStructured sends the prompt and returns the first valid JSON
// document recoverable from the model's reply.
//
// Provider failures are retried up to MaxAttempts with linearly increasing
// backoff. Parse failures are not retried here: the stage-level escalation
// decides what to do with an unusable reply.
func (c *Client) GenerateStructured(ctx context.Context, req Request) (json.RawMessage, error) {
	limit := c.MaxPromptChars
	if limit <= 0 {
		limit = MaxPromptChars
	}
	if len(req.Prompt) > limit {
		return nil, &PromptTooLargeError{Size: len(req.Prompt), Limit: limit}
	}

	system := strings.TrimSpace(req.System)
	if system != "" {
		system += "\n\n"
	}
	system += systemSuffix(req.Schema)
	messages := []llmclient.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: req.Prompt},
	}

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.provider.Invoke(ctx, messages)
		if err == nil {
			return c.parse(text)
		}
		lastErr = err
		c.logf("provider %s attempt %d/%d failed: %v", c.provider.Name(), attempt, attempts, err)
		var perm *llmclient.PermanentError
		if errors.As(err, &perm) {
			break
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoffFor(attempt)):
		}
	}
	return nil, &ProviderError{Provider: c.provider.Name(), Attempts: attempts, Err: lastErr}
}

func (c *Client) backoffFor(attempt int) time.Duration {
	base := c.Backoff
	if base < 0 {
		base = 0
	}
	return base * time.Duration(attempt)
}

// parse runs the extraction ladder, then truncation repair.
func (c *Client) parse(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ResponseParseError{Reason: "empty response from provider"}
	}
	if candidate, err := jsonx.Extract(text); err == nil {
		return json.RawMessage(candidate), nil
	}
	if repaired, ok := jsonx.RepairTruncated(text); ok {
		c.logf("recovered truncated JSON (%d -> %d bytes)", len(text), len(repaired))
		return json.RawMessage(repaired), nil
	}
	return nil, &ResponseParseError{
		Reason:  "no JSON found in response",
		Preview: preview(text),
	}
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger == nil {
		return
	}
	c.Logger.Printf("llm: "+format, args...)
}

// Generate is the typed entry point: it runs GenerateStructured, checks the
// schema's required fields, and decodes into T.
func Generate[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	raw, err := c.GenerateStructured(ctx, req)
	if err != nil {
		return out, err
	}
	if err := req.Schema.CheckRequired(raw); err != nil {
		return out, &ResponseParseError{Reason: err.Error(), Preview: preview(string(raw))}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ResponseParseError{
			Reason:  "decode into result type: " + err.Error(),
			Preview: preview(string(raw)),
		}
	}
	return out, nil
}
