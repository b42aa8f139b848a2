package llmclient

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a provider replies without any text.
var ErrEmptyCompletion = errors.New("llmclient: empty completion from provider")

// Message is one chat turn. Role is "system" or "user".
type Message struct {
	Role    string
	Content string
}

// Client is the minimal provider surface the analysis core depends on: one
// completion call returning the raw model text.
type Client interface {
	Name() string
	Invoke(ctx context.Context, messages []Message) (string, error)
	Close() error
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// SystemText concatenates the system messages of a conversation; providers
// without a native system slot prepend it to the user turn.
func SystemText(messages []Message) string {
	out := ""
	for _, m := range messages {
		if m.Role != "system" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

// UserText concatenates the non-system messages of a conversation.
func UserText(messages []Message) string {
	out := ""
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}
