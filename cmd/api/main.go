package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repolens/internal/config"
	"repolens/internal/githubrepo"
	"repolens/internal/llm"
	"repolens/internal/llmclient"
	"repolens/internal/run"
	"repolens/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	client, err := buildLLMClient(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()
	log.Printf("llm provider: %s", client.Provider())

	repos := githubrepo.NewClient(cfg.GitHub.Token, cfg.GitHub.MaxFiles)
	coord := run.NewCoordinator(client, repos, log.Default())
	handler := server.NewHandler(coord, log.Default())

	srv := server.New(cfg.Port, handler.Routes())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}

// buildLLMClient prefers Gemini and falls back to Groq when Gemini has no
// key or fails to initialize.
func buildLLMClient(ctx context.Context, cfg *config.Config) (*llm.Client, error) {
	var providers []llmclient.Client

	if cfg.LLM.GeminiAPIKey != "" {
		gemini, err := llmclient.NewGeminiClient(ctx, cfg.LLM.GeminiModel)
		if err != nil {
			log.Printf("gemini unavailable: %v", err)
		} else {
			providers = append(providers, gemini)
		}
	}
	if cfg.LLM.GroqAPIKey != "" {
		groq, err := llmclient.NewGroqClient(cfg.LLM.GroqAPIKey, cfg.LLM.GroqModel)
		if err != nil {
			log.Printf("groq unavailable: %v", err)
		} else {
			providers = append(providers, groq)
		}
	}

	client, err := llm.NewClient(providers...)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.MaxAttempts > 0 {
		client.MaxAttempts = cfg.LLM.MaxAttempts
	}
	if cfg.LLM.BackoffMS > 0 {
		client.Backoff = time.Duration(cfg.LLM.BackoffMS) * time.Millisecond
	}
	return client, nil
}
