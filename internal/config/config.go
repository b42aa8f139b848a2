// Package config loads process configuration from .env files, environment
// variables, and flags, in that order of increasing precedence.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	GitHub GitHubConfig
	LLM    LLMConfig
}

type GitHubConfig struct {
	Token    string
	MaxFiles int
}

type LLMConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
	MaxAttempts  int
	BackoffMS    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:   *port,
		Env:    env,
		GitHub: loadGitHubConfig(),
		LLM:    loadLLMConfig(),
	}, nil
}

func loadGitHubConfig() GitHubConfig {
	return GitHubConfig{
		Token:    strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		MaxFiles: intEnv("GITHUB_MAX_FILES", 0),
	}
}

func loadLLMConfig() LLMConfig {
	return LLMConfig{
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.0-flash"),
		GroqAPIKey:   strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqModel:    firstNonEmpty(strings.TrimSpace(os.Getenv("GROQ_MODEL")), "llama-3.3-70b-versatile"),
		MaxAttempts:  intEnv("LLM_MAX_ATTEMPTS", 0),
		BackoffMS:    intEnv("LLM_BACKOFF_MS", 0),
	}
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
