package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"repolens/internal/analysis"
	"repolens/internal/githubrepo"
	"repolens/internal/llm"
	"repolens/internal/llmclient"
)

type fakeSnapshotter struct {
	snap *githubrepo.Snapshot
	err  error
}

func (f *fakeSnapshotter) Snapshot(_ context.Context, _, _ string) (*githubrepo.Snapshot, error) {
	return f.snap, f.err
}

func testSnapshot() *githubrepo.Snapshot {
	files := []githubrepo.File{
		{Path: "src/index.js", Name: "index.js", Type: "file", Extension: ".js"},
		{Path: "src/controllers/user.js", Name: "user.js", Type: "file", Extension: ".js"},
		{Path: "src/models/user.js", Name: "user.js", Type: "file", Extension: ".js"},
		{Path: "src/views/user.ejs", Name: "user.ejs", Type: "file", Extension: ".ejs"},
		{Path: "package.json", Name: "package.json", Type: "file", Extension: ".json"},
	}
	return &githubrepo.Snapshot{
		Metadata: githubrepo.Metadata{
			Name: "demo", Owner: "acme", Description: "demo app",
			Language: "JavaScript", DefaultBranch: "main",
		},
		Files:      files,
		Categories: githubrepo.Categorize(files),
	}
}

func offlineCoordinator(t *testing.T, repos Snapshotter) *Coordinator {
	t.Helper()
	client, err := llm.NewClient(llmclient.NewFailingClient(errors.New("provider down")))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.Backoff = 0
	client.Logger = nil
	return NewCoordinator(client, repos, log.New(io.Discard, "", 0))
}

func waitDone(t *testing.T, c *Coordinator, id string) Run {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		if r, ok := c.Store.Get(id); ok && r.Done() {
			return r
		}
		select {
		case <-deadline:
			t.Fatal("run did not finish in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCoordinator_CompletesWithoutProvider(t *testing.T) {
	c := offlineCoordinator(t, &fakeSnapshotter{snap: testSnapshot()})

	started, err := c.Start(context.Background(), "acme", "demo")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != StatusPending {
		t.Fatalf("initial status: %q", started.Status)
	}

	ch, ok := c.Events.Get(started.ID)
	if !ok {
		t.Fatal("event channel not allocated")
	}

	r := waitDone(t, c, started.ID)
	if r.Status != StatusCompleted {
		t.Fatalf("status %q, error %q", r.Status, r.Error)
	}
	if r.Progress != 100 {
		t.Fatalf("final progress: %d", r.Progress)
	}
	if r.Result == nil || r.Result.Repository == nil || r.Result.Architecture == nil ||
		r.Result.CodeFlow == nil || r.Result.Risk == nil {
		t.Fatalf("incomplete result: %+v", r.Result)
	}
	if r.FinishedAt.IsZero() {
		t.Fatal("finished_at not set")
	}

	var sawCompleted bool
	for ev := range ch {
		if ev.Type == EventCompleted {
			sawCompleted = true
		}
	}
	if !sawCompleted {
		t.Fatal("completed event never published")
	}
}

func TestCoordinator_FetchFailureMarksRunFailed(t *testing.T) {
	c := offlineCoordinator(t, &fakeSnapshotter{err: errors.New("repository not found")})

	started, err := c.Start(context.Background(), "acme", "missing")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	r := waitDone(t, c, started.ID)
	if r.Status != StatusFailed {
		t.Fatalf("status: %q", r.Status)
	}
	if r.Error == "" || r.Result == nil || r.Result.Repository != nil {
		t.Fatalf("unexpected failed record: %+v", r)
	}
}

func TestCoordinator_StartValidatesInput(t *testing.T) {
	c := offlineCoordinator(t, &fakeSnapshotter{snap: testSnapshot()})
	if _, err := c.Start(context.Background(), "", "demo"); err == nil {
		t.Fatal("expected error for empty owner")
	}
	if _, err := c.Start(context.Background(), "acme", "  "); err == nil {
		t.Fatal("expected error for blank repo")
	}
}

func TestCoordinator_CheckpointDoesNotRaceReaders(t *testing.T) {
	c := offlineCoordinator(t, &fakeSnapshotter{snap: testSnapshot()})
	const id = "run-cow"
	c.Store.Put(Run{ID: id, Status: StatusRunning, StartedAt: time.Now(), Result: &analysis.Result{}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			purpose := fmt.Sprintf("revision %d", i)
			c.checkpoint(id, func(res *analysis.Result) {
				res.Repository = &analysis.RepositoryAnalysis{Purpose: purpose}
			})
		}
	}()

	// Marshal escaped copies while checkpoints land; the race detector flags
	// any write into a Result a copy still points at.
	for {
		r, ok := c.Store.Get(id)
		if !ok {
			t.Fatal("run vanished")
		}
		if _, err := json.Marshal(r); err != nil {
			t.Fatalf("marshal: %v", err)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestCoordinator_StartWithContextHonorsCancel(t *testing.T) {
	c := offlineCoordinator(t, &fakeSnapshotter{snap: testSnapshot()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started, err := c.StartWithContext(ctx, "acme", "demo")
	if err != nil {
		t.Fatalf("StartWithContext: %v", err)
	}
	r := waitDone(t, c, started.ID)
	if r.Status != StatusFailed {
		t.Fatalf("status: %q", r.Status)
	}
	if !strings.Contains(r.Error, context.Canceled.Error()) {
		t.Fatalf("cancellation not surfaced: %q", r.Error)
	}
}

func TestCoordinator_ProgressMonotonic(t *testing.T) {
	c := offlineCoordinator(t, &fakeSnapshotter{snap: testSnapshot()})

	started, err := c.Start(context.Background(), "acme", "demo")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch, _ := c.Events.Get(started.ID)
	waitDone(t, c, started.ID)

	last := -1
	for ev := range ch {
		if ev.Type != EventProgress {
			continue
		}
		if ev.Progress < last {
			t.Fatalf("progress regressed: %d after %d", ev.Progress, last)
		}
		last = ev.Progress
	}
}
