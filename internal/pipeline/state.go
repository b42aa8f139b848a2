package pipeline

import (
	"fmt"
	"strings"
)

// State is one immutable snapshot of a run's per-stage bookkeeping. Stages
// never mutate a State in place; they derive the next snapshot through the
// With* helpers so the executor always holds a consistent "current" value.
type State struct {
	RunID    string
	Stage    string
	Progress int
	Errors   []string
	Meta     map[string]any
}

// NewState seeds a run's state.
func NewState(runID string) State {
	return State{RunID: runID, Meta: map[string]any{}}
}

// WithStage returns a snapshot positioned at the named stage/checkpoint.
func (s State) WithStage(name string, progress int) State {
	next := s.clone()
	next.Stage = name
	if progress > next.Progress {
		// Progress only moves forward.
		next.Progress = progress
	}
	return next
}

// WithMeta returns a snapshot with the stage's contribution merged in.
// Existing keys are only overwritten when a stage reuses a key on purpose.
func (s State) WithMeta(contribution map[string]any) State {
	next := s.clone()
	for k, v := range contribution {
		next.Meta[k] = v
	}
	return next
}

// WithError returns a snapshot with msg appended to the accumulated errors.
func (s State) WithError(msg string) State {
	next := s.clone()
	next.Errors = append(next.Errors, msg)
	return next
}

func (s State) clone() State {
	meta := make(map[string]any, len(s.Meta)+2)
	for k, v := range s.Meta {
		meta[k] = v
	}
	errs := make([]string, len(s.Errors))
	copy(errs, s.Errors)
	return State{
		RunID:    s.RunID,
		Stage:    s.Stage,
		Progress: s.Progress,
		Errors:   errs,
		Meta:     meta,
	}
}

// StageError is a stage's terminal failure: every escalation tier was tried
// and none produced a value. The executor prefixes the stage name, so the
// message carries only the cause.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("all attempts failed: %v", e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PipelineError aborts a pipeline when a stage accumulated errors.
type PipelineError struct {
	Pipeline string
	Stage    string
	Messages []string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s aborted at stage %s: %s",
		e.Pipeline, e.Stage, strings.Join(e.Messages, "; "))
}
