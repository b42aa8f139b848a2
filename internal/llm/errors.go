package llm

import "fmt"

// PromptTooLargeError is returned before any provider call when a prompt
// exceeds the size ceiling.
type PromptTooLargeError struct {
	Size  int
	Limit int
}

func (e *PromptTooLargeError) Error() string {
	return fmt.Sprintf("llm: prompt too large: %d chars (limit %d)", e.Size, e.Limit)
}

// ProviderError wraps a transient provider failure after retries exhausted.
type ProviderError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm: provider %s failed after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ResponseParseError is returned when the provider replied but no extraction
// or repair strategy produced valid JSON. Preview carries a truncated slice
// of the raw response for diagnosis.
type ResponseParseError struct {
	Reason  string
	Preview string
}

func (e *ResponseParseError) Error() string {
	if e.Preview == "" {
		return "llm: " + e.Reason
	}
	return fmt.Sprintf("llm: %s; response preview: %q", e.Reason, e.Preview)
}

const previewLimit = 240

func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "..."
}
