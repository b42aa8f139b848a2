package run

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
	"repolens/internal/llm"
	"repolens/internal/pipeline"
)

// Snapshotter fetches the repository content a run analyzes.
type Snapshotter interface {
	Snapshot(ctx context.Context, owner, repo string) (*githubrepo.Snapshot, error)
}

// Coordinator starts runs and drives the pipelines to completion.
type Coordinator struct {
	LLM    *llm.Client
	Repos  Snapshotter
	Store  *Store
	Events *EventBroker
	Logger *log.Logger

	// EventBuffer sizes each run's event channel.
	EventBuffer int
}

// NewCoordinator wires a coordinator with a fresh store and broker.
func NewCoordinator(llmClient *llm.Client, repos Snapshotter, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		LLM:         llmClient,
		Repos:       repos,
		Store:       NewStore(),
		Events:      NewEventBroker(),
		Logger:      logger,
		EventBuffer: 64,
	}
}

// Start registers a new run and launches it detached from the caller's
// context, so a poller disconnecting never cancels an analysis. The returned
// record is the pending snapshot; poll the store or watch the event channel
// for progress.
func (c *Coordinator) Start(_ context.Context, owner, repo string) (Run, error) {
	return c.start(context.Background(), owner, repo)
}

// StartWithContext launches the run under the caller's context. Cancelling it
// aborts the pipelines and marks the run failed. For callers that own the
// whole run lifetime, such as the CLI; servers use Start.
func (c *Coordinator) StartWithContext(ctx context.Context, owner, repo string) (Run, error) {
	return c.start(ctx, owner, repo)
}

func (c *Coordinator) start(ctx context.Context, owner, repo string) (Run, error) {
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSpace(repo)
	if owner == "" || repo == "" {
		return Run{}, fmt.Errorf("owner and repo are required")
	}

	r := Run{
		ID:        uuid.NewString(),
		Owner:     owner,
		Repo:      repo,
		Status:    StatusPending,
		StartedAt: time.Now(),
	}
	c.Store.Put(r)
	c.Events.Allocate(r.ID, c.EventBuffer)

	go c.execute(ctx, r.ID, owner, repo)
	return r, nil
}

// execute runs the four pipelines in order, threading each result into the
// next and checkpointing the store after every pipeline. The first fatal
// error marks the run failed and stops the chain.
func (c *Coordinator) execute(ctx context.Context, runID, owner, repo string) {
	rc := pipeline.NewRunContext(runID, c.Logger)
	rc.OnProgress = func(stage string, progress int) {
		c.Store.Update(runID, func(r *Run) {
			r.Stage = stage
			if progress > r.Progress {
				r.Progress = progress
			}
		})
		c.Events.Publish(Event{Type: EventProgress, RunID: runID, Stage: stage, Progress: progress})
	}

	c.Store.Update(runID, func(r *Run) {
		r.Status = StatusRunning
		r.Result = &analysis.Result{}
	})

	snap, err := c.Repos.Snapshot(ctx, owner, repo)
	if err != nil {
		c.fail(runID, fmt.Errorf("fetch %s/%s: %w", owner, repo, err))
		return
	}

	st := pipeline.NewState(runID)

	repoPipe := &pipeline.RepositoryPipeline{LLM: c.LLM}
	st, repoOut, err := repoPipe.Analyze(ctx, rc, st, snap)
	if err != nil {
		c.fail(runID, err)
		return
	}
	c.checkpoint(runID, func(res *analysis.Result) { res.Repository = repoOut })

	archPipe := &pipeline.ArchitecturePipeline{LLM: c.LLM}
	st, archOut, err := archPipe.Analyze(ctx, rc, st, snap, repoOut)
	if err != nil {
		c.fail(runID, err)
		return
	}
	c.checkpoint(runID, func(res *analysis.Result) { res.Architecture = archOut })

	flowPipe := &pipeline.CodeFlowPipeline{LLM: c.LLM}
	st, flowOut, err := flowPipe.Analyze(ctx, rc, st, snap, repoOut, archOut)
	if err != nil {
		c.fail(runID, err)
		return
	}
	c.checkpoint(runID, func(res *analysis.Result) { res.CodeFlow = flowOut })

	riskPipe := &pipeline.RiskPipeline{LLM: c.LLM}
	st, riskOut, err := riskPipe.Analyze(ctx, rc, st, snap, repoOut, archOut, flowOut)
	if err != nil {
		c.fail(runID, err)
		return
	}
	c.checkpoint(runID, func(res *analysis.Result) { res.Risk = riskOut })

	c.Store.Update(runID, func(r *Run) {
		r.Status = StatusCompleted
		r.Stage = st.Stage
		r.Progress = 100
		r.FinishedAt = time.Now()
	})
	c.Events.Publish(Event{Type: EventCompleted, RunID: runID, Stage: st.Stage, Progress: 100})
	c.Events.Close(runID)
	rc.Logf("run completed in %d steps", rc.Steps())
}

// checkpoint publishes a pipeline's output copy-on-write: it applies fn to a
// copy of the current result and swaps the pointer. Run copies handed out by
// the store before the swap keep the old value, so pollers may marshal them
// without holding the store lock.
func (c *Coordinator) checkpoint(runID string, fn func(*analysis.Result)) {
	c.Store.Update(runID, func(r *Run) {
		next := analysis.Result{}
		if r.Result != nil {
			next = *r.Result
		}
		fn(&next)
		r.Result = &next
	})
}

func (c *Coordinator) fail(runID string, err error) {
	var progress int
	c.Store.Update(runID, func(r *Run) {
		r.Status = StatusFailed
		r.Error = err.Error()
		r.FinishedAt = time.Now()
		progress = r.Progress
	})
	c.Events.Publish(Event{Type: EventError, RunID: runID, Progress: progress, Message: err.Error()})
	c.Events.Close(runID)
	c.Logger.Printf("run %s failed: %v", runID, err)
}
