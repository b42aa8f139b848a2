package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"repolens/internal/githubrepo"
	"repolens/internal/llm"
	"repolens/internal/llmclient"
	"repolens/internal/run"
)

var (
	analyzeFormat   string
	analyzeOffline  bool
	analyzeToken    string
	analyzeMaxFiles int
	analyzeTimeout  time.Duration
	analyzeQuiet    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <owner/repo>",
	Short: "Analyze a GitHub repository",
	Long: `Analyze a GitHub repository and print the full assessment.

Examples:
  repolens analyze golang/go
  repolens analyze --format=yaml gorilla/websocket
  repolens analyze --offline --token="" expressjs/express`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format (json, yaml)")
	analyzeCmd.Flags().BoolVar(&analyzeOffline, "offline", false, "Skip LLM providers; heuristics only")
	analyzeCmd.Flags().StringVar(&analyzeToken, "token", "", "GitHub token (default: GITHUB_TOKEN)")
	analyzeCmd.Flags().IntVar(&analyzeMaxFiles, "max-files", 0, "Max tree entries to fetch (0 for default)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "Overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&analyzeQuiet, "quiet", false, "Suppress progress output")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	owner, repo, err := splitTarget(args[0])
	if err != nil {
		return err
	}
	if analyzeFormat != "json" && analyzeFormat != "yaml" {
		return fmt.Errorf("unknown format %q (json, yaml)", analyzeFormat)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	client, err := buildClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	client.Logger = log.New(io.Discard, "", 0)

	token := analyzeToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	repos := githubrepo.NewClient(token, analyzeMaxFiles)

	logger := log.New(io.Discard, "", 0)
	coord := run.NewCoordinator(client, repos, logger)

	// The CLI owns its run end to end, so the timeout flag must reach the
	// pipelines. The detached Start is for servers.
	started, err := coord.StartWithContext(ctx, owner, repo)
	if err != nil {
		return err
	}

	ch, _ := coord.Events.Get(started.ID)
	for ev := range ch {
		if analyzeQuiet {
			continue
		}
		switch ev.Type {
		case run.EventProgress:
			fmt.Fprintf(os.Stderr, "  %3d%% %s\n", ev.Progress, ev.Stage)
		case run.EventError:
			fmt.Fprintf(os.Stderr, "  failed: %s\n", ev.Message)
		}
	}

	final, ok := coord.Store.Get(started.ID)
	if !ok {
		return fmt.Errorf("run %s vanished", started.ID)
	}
	if final.Status == run.StatusFailed {
		return errors.New(final.Error)
	}
	return printResult(os.Stdout, final)
}

func splitTarget(arg string) (owner, repo string, err error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("target must be owner/repo, got %q", arg)
	}
	return parts[0], parts[1], nil
}

// buildClient selects a provider: Gemini first, then Groq, unless --offline
// forces the heuristics-only path.
func buildClient(ctx context.Context) (*llm.Client, error) {
	if analyzeOffline {
		return llm.NewClient(llmclient.NewFailingClient(errors.New("offline mode")))
	}

	var providers []llmclient.Client
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			model = "gemini-2.0-flash"
		}
		gemini, err := llmclient.NewGeminiClient(ctx, model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gemini unavailable: %v\n", err)
		} else {
			providers = append(providers, gemini)
		}
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		model := os.Getenv("GROQ_MODEL")
		if model == "" {
			model = "llama-3.3-70b-versatile"
		}
		groq, err := llmclient.NewGroqClient(key, model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "groq unavailable: %v\n", err)
		} else {
			providers = append(providers, groq)
		}
	}
	if len(providers) == 0 {
		fmt.Fprintln(os.Stderr, "no LLM provider configured; using heuristics only")
		return llm.NewClient(llmclient.NewFailingClient(errors.New("no provider configured")))
	}
	return llm.NewClient(providers...)
}

func printResult(w io.Writer, final run.Run) error {
	out := map[string]any{
		"id":       final.ID,
		"owner":    final.Owner,
		"repo":     final.Repo,
		"status":   final.Status,
		"result":   final.Result,
		"duration": final.FinishedAt.Sub(final.StartedAt).Round(time.Millisecond).String(),
	}
	switch analyzeFormat {
	case "yaml":
		// Round-trip through JSON so the json field names apply to YAML too.
		raw, err := json.Marshal(out)
		if err != nil {
			return err
		}
		var plain map[string]any
		if err := json.Unmarshal(raw, &plain); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(plain)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}
