package llmclient

import (
	"context"
	"sync"
)

// FakeClient returns scripted responses for offline runs and tests. Responses
// are consumed in order; when the script is exhausted the last entry repeats.
// An entry may be an error instead of text.
type FakeClient struct {
	mu      sync.Mutex
	script  []FakeReply
	calls   int
	prompts []string
}

// FakeReply is one scripted turn.
type FakeReply struct {
	Text string
	Err  error
}

func NewFakeClient(script ...FakeReply) *FakeClient {
	if len(script) == 0 {
		script = []FakeReply{{Text: "{}"}}
	}
	return &FakeClient{script: script}
}

// NewFailingClient always returns err.
func NewFailingClient(err error) *FakeClient {
	return NewFakeClient(FakeReply{Err: err})
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Invoke(_ context.Context, messages []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, UserText(messages))
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	f.calls++
	r := f.script[idx]
	return r.Text, r.Err
}

// Calls reports how many times Invoke ran.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Prompts returns the user text of every call, in order.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}
