// Package run coordinates analysis runs: it owns the in-memory run records,
// the per-run event fan-out, and the coordinator that drives the four
// pipelines in order.
package run

import (
	"time"

	"repolens/internal/analysis"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one analysis run. Store hands out copies, so readers may hold a Run
// across goroutines; the coordinator swaps in a fresh Result value at every
// checkpoint instead of mutating the one a copy may already point at.
type Run struct {
	ID         string           `json:"id"`
	Owner      string           `json:"owner"`
	Repo       string           `json:"repo"`
	Status     Status           `json:"status"`
	Stage      string           `json:"stage,omitempty"`
	Progress   int              `json:"progress"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitzero"`
	Result     *analysis.Result `json:"result,omitempty"`
}

// Done reports whether the run reached a terminal status.
func (r Run) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// EventType tags what a watcher event carries.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
)

// Event is one progress notification streamed to watchers.
type Event struct {
	Type     EventType `json:"type"`
	RunID    string    `json:"run_id"`
	Stage    string    `json:"stage,omitempty"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
}
