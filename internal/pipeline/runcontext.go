package pipeline

import (
	"log"
	"time"
)

// RunContext carries per-run observability: the elapsed-time origin, a step
// counter, and an optional progress sink. It is passed into every stage call
// so concurrent runs never share logging state.
type RunContext struct {
	RunID  string
	Logger *log.Logger

	// OnProgress, when set, receives every stage checkpoint.
	OnProgress func(stage string, progress int)

	start time.Time
	steps int
}

// NewRunContext creates a context with the clock origin set to now.
func NewRunContext(runID string, logger *log.Logger) *RunContext {
	if logger == nil {
		logger = log.Default()
	}
	return &RunContext{RunID: runID, Logger: logger, start: time.Now()}
}

// Elapsed reports time since the run started.
func (rc *RunContext) Elapsed() time.Duration {
	if rc == nil || rc.start.IsZero() {
		return 0
	}
	return time.Since(rc.start)
}

// Steps reports how many stage steps have run.
func (rc *RunContext) Steps() int {
	if rc == nil {
		return 0
	}
	return rc.steps
}

// step records a stage transition and notifies the progress sink.
func (rc *RunContext) step(stage string, progress int) {
	if rc == nil {
		return
	}
	rc.steps++
	rc.Logf("stage %s (step %d, %d%%)", stage, rc.steps, progress)
	if rc.OnProgress != nil {
		rc.OnProgress(stage, progress)
	}
}

// Logf logs with run id and elapsed time context.
func (rc *RunContext) Logf(format string, args ...any) {
	if rc == nil || rc.Logger == nil {
		return
	}
	prefix := append([]any{rc.RunID, rc.Elapsed().Round(time.Millisecond)}, args...)
	rc.Logger.Printf("run %s [%s] "+format, prefix...)
}
