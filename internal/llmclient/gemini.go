package llmclient

import (
	"context"
	"os"
	"strconv"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
	rl    *rpsLimiter
}

// NewGeminiClient builds a Gemini-backed client. The API key is taken from
// the environment by the genai SDK (GEMINI_API_KEY / GOOGLE_API_KEY).
// Optional RPS throttling via LLM_RPS / LLM_BURST.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	var rps float64
	var burst int
	if v := os.Getenv("LLM_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rps = f
		}
	}
	if v := os.Getenv("LLM_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			burst = n
		}
	}
	return &GeminiClient{cli: cli, model: model, rl: newRPSLimiter(rps, burst)}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

func (g *GeminiClient) Close() error {
	if g.rl != nil {
		g.rl.Stop()
	}
	return nil
}

// Invoke sends the conversation and requests application/json output.
func (g *GeminiClient) Invoke(ctx context.Context, messages []Message) (string, error) {
	if err := g.rl.Acquire(ctx); err != nil {
		return "", err
	}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if sys := SystemText(messages); sys != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: sys}}}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: UserText(messages)}}}},
		cfg,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
