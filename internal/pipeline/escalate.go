package pipeline

import "context"

// Escalation tiers, in the order they are attempted.
const (
	tierRich      = "rich"
	tierSimple    = "simplified"
	tierHeuristic = "heuristic"
)

// escalate implements the three-tier resilience ladder: a schema-rich LLM
// attempt, one strictly simplified LLM attempt, then a deterministic
// heuristic that cannot fail on provider issues. The returned tier names
// which path produced the value.
//
// simple and heuristic may be nil for stages without a defined fallback;
// the ladder then stops at the last defined tier's error. A cancelled
// context is never escalated past: the heuristic covers provider failures,
// not the caller giving up.
func escalate[T any](
	ctx context.Context,
	rc *RunContext,
	stage string,
	rich func(ctx context.Context) (T, error),
	simple func(ctx context.Context) (T, error),
	heuristic func() T,
) (T, string, error) {
	out, err := rich(ctx)
	if err == nil {
		return out, tierRich, nil
	}
	rc.Logf("stage %s: rich attempt failed: %v", stage, err)

	if simple != nil && ctx.Err() == nil {
		out, simpleErr := simple(ctx)
		if simpleErr == nil {
			return out, tierSimple, nil
		}
		rc.Logf("stage %s: simplified attempt failed: %v", stage, simpleErr)
		err = simpleErr
	}

	if ctx.Err() != nil {
		var zero T
		return zero, "", &StageError{Stage: stage, Err: ctx.Err()}
	}

	if heuristic != nil {
		rc.Logf("stage %s: falling back to heuristic", stage)
		return heuristic(), tierHeuristic, nil
	}

	var zero T
	return zero, "", &StageError{Stage: stage, Err: err}
}
