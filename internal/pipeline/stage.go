package pipeline

import (
	"context"
	"fmt"
)

// Stage is one named step of a pipeline. Progress is the fixed checkpoint
// the run reaches once this stage completes; it is not derived from work
// done. Run returns the stage's metadata contribution.
type Stage struct {
	Name     string
	Progress int
	Run      func(ctx context.Context, rc *RunContext, st State) (map[string]any, error)
}

// Execute folds the stage list over the state, left to right. Each stage
// only starts when every prior stage finished without recording an error;
// the first accumulated error aborts the remaining stages with a
// *PipelineError. Stage panics/errors are captured into the state first so
// callers inspecting the returned State see everything that went wrong.
func Execute(ctx context.Context, rc *RunContext, pipeline string, stages []Stage, st State) (State, error) {
	for _, stage := range stages {
		if len(st.Errors) > 0 {
			return st, &PipelineError{Pipeline: pipeline, Stage: st.Stage, Messages: st.Errors}
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st = st.WithStage(stage.Name, stage.Progress)
		rc.step(stage.Name, stage.Progress)

		contribution, err := stage.Run(ctx, rc, st)
		if err != nil {
			st = st.WithError(fmt.Sprintf("%s: %v", stage.Name, err))
			rc.Logf("stage %s failed: %v", stage.Name, err)
			continue
		}
		if len(contribution) > 0 {
			st = st.WithMeta(contribution)
		}
	}
	if len(st.Errors) > 0 {
		return st, &PipelineError{Pipeline: pipeline, Stage: st.Stage, Messages: st.Errors}
	}
	return st, nil
}

// metaAs fetches a typed value a previous stage stored under key.
func metaAs[T any](st State, key string) (T, bool) {
	var zero T
	v, ok := st.Meta[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
