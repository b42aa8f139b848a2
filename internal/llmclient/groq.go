package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible).
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewGroqClient creates a Groq client. If apiKey is empty, it falls back to
// the GROQ_API_KEY env var.
func NewGroqClient(apiKey, model string) (*GroqClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("groq: missing API key")
	}
	return &GroqClient{
		http:    &http.Client{Timeout: 60 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.groq.com/openai/v1/chat/completions",
	}, nil
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke sends the conversation as-is and returns the first choice's text.
func (g *GroqClient) Invoke(ctx context.Context, messages []Message) (string, error) {
	reqBody := groqChatReq{Model: g.model, Temperature: 0}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, groqMessage{Role: m.Role, Content: m.Content})
	}
	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status, string(body))
		// Context length overflows never recover on retry.
		if resp.StatusCode == 400 && strings.Contains(string(body), `"code":"context_length_exceeded"`) {
			return "", NewPermanentError(err)
		}
		return "", err
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}
