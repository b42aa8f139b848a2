package pipeline

import (
	"context"
	"errors"
	"testing"
)

func silentRC(runID string) *RunContext {
	rc := NewRunContext(runID, nil)
	rc.Logger = nil
	return rc
}

func TestExecute_FoldsMetaForward(t *testing.T) {
	stages := []Stage{
		{Name: "first", Progress: 10, Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
			return map[string]any{"a": 1}, nil
		}},
		{Name: "second", Progress: 20, Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
			if st.Meta["a"] != 1 {
				t.Fatal("second stage should see first stage's contribution")
			}
			return map[string]any{"b": 2}, nil
		}},
	}
	st, err := Execute(context.Background(), silentRC("r1"), "test", stages, NewState("r1"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if st.Meta["a"] != 1 || st.Meta["b"] != 2 {
		t.Fatalf("meta not accumulated: %v", st.Meta)
	}
	if st.Progress != 20 || st.Stage != "second" {
		t.Fatalf("final position: stage=%s progress=%d", st.Stage, st.Progress)
	}
}

func TestExecute_AbortsAfterError(t *testing.T) {
	ran := map[string]bool{}
	stages := []Stage{
		{Name: "boom", Progress: 10, Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
			ran["boom"] = true
			return nil, errors.New("stage exploded")
		}},
		{Name: "never", Progress: 20, Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) {
			ran["never"] = true
			return nil, nil
		}},
	}
	st, err := Execute(context.Background(), silentRC("r1"), "test", stages, NewState("r1"))
	if err == nil {
		t.Fatal("expected PipelineError")
	}
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("wrong error type: %T", err)
	}
	if pErr.Stage != "boom" {
		t.Fatalf("aborting stage: %q", pErr.Stage)
	}
	if ran["never"] {
		t.Fatal("stage after a failure must not run")
	}
	if len(st.Errors) != 1 {
		t.Fatalf("errors not accumulated: %v", st.Errors)
	}
}

func TestExecute_ProgressMonotonic(t *testing.T) {
	var seen []int
	rc := silentRC("r1")
	rc.OnProgress = func(_ string, p int) { seen = append(seen, p) }
	stages := []Stage{
		{Name: "a", Progress: 30, Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) { return nil, nil }},
		{Name: "b", Progress: 60, Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) { return nil, nil }},
		{Name: "c", Progress: 100, Run: func(ctx context.Context, rc *RunContext, st State) (map[string]any, error) { return nil, nil }},
	}
	if _, err := Execute(context.Background(), rc, "test", stages, NewState("r1")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("progress not increasing: %v", seen)
		}
	}
	if rc.Steps() != 3 {
		t.Fatalf("steps: %d", rc.Steps())
	}
}

func TestState_SnapshotsAreIndependent(t *testing.T) {
	base := NewState("r1")
	withA := base.WithMeta(map[string]any{"a": 1})
	withB := withA.WithMeta(map[string]any{"b": 2})

	if _, ok := base.Meta["a"]; ok {
		t.Fatal("base snapshot mutated")
	}
	if _, ok := withA.Meta["b"]; ok {
		t.Fatal("intermediate snapshot mutated")
	}
	if withB.Meta["a"] != 1 || withB.Meta["b"] != 2 {
		t.Fatalf("final snapshot wrong: %v", withB.Meta)
	}
}

func TestState_ProgressNeverRegresses(t *testing.T) {
	st := NewState("r1").WithStage("late", 80).WithStage("weird", 10)
	if st.Progress != 80 {
		t.Fatalf("progress regressed to %d", st.Progress)
	}
}

func TestEscalate_Order(t *testing.T) {
	var calls []string
	out, tier, err := escalate(context.Background(), silentRC("r1"), "s",
		func(ctx context.Context) (int, error) {
			calls = append(calls, "rich")
			return 0, errors.New("rich failed")
		},
		func(ctx context.Context) (int, error) {
			calls = append(calls, "simple")
			return 0, errors.New("simple failed")
		},
		func() int {
			calls = append(calls, "heuristic")
			return 7
		},
	)
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if out != 7 || tier != tierHeuristic {
		t.Fatalf("got %d via %q", out, tier)
	}
	want := []string{"rich", "simple", "heuristic"}
	if len(calls) != len(want) {
		t.Fatalf("calls: %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call order: %v", calls)
		}
	}
}

func TestEscalate_RichShortCircuits(t *testing.T) {
	heuristicRan := false
	out, tier, err := escalate(context.Background(), silentRC("r1"), "s",
		func(ctx context.Context) (string, error) { return "rich-answer", nil },
		nil,
		func() string { heuristicRan = true; return "heuristic" },
	)
	if err != nil || out != "rich-answer" || tier != tierRich {
		t.Fatalf("got %q via %q err=%v", out, tier, err)
	}
	if heuristicRan {
		t.Fatal("heuristic must not run when rich succeeds")
	}
}

func TestEscalate_CancelledContextSkipsFallbacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	heuristicRan := false
	_, _, err := escalate(ctx, silentRC("r1"), "s",
		func(ctx context.Context) (int, error) { return 0, ctx.Err() },
		func(ctx context.Context) (int, error) {
			t.Fatal("simplified tier must not run after cancellation")
			return 0, nil
		},
		func() int { heuristicRan = true; return 7 },
	)

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("wrong error type: %T", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if heuristicRan {
		t.Fatal("heuristic must not mask cancellation")
	}
}

func TestEscalate_NoFallbackPropagatesError(t *testing.T) {
	_, _, err := escalate(context.Background(), silentRC("r1"), "s",
		func(ctx context.Context) (int, error) { return 0, errors.New("nope") },
		nil, nil,
	)
	if err == nil {
		t.Fatal("expected error when no fallback is defined")
	}
}
