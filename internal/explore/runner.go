package explore

import (
	"context"

	"cartograph/internal/logging"
)

// DefaultRecursionLimit bounds the total number of stage invocations per run.
const DefaultRecursionLimit = 200

// Stage is one phase of the loop.
type Stage func(ctx context.Context, sc *StageContext, s RunState) Delta

// Runner drives the observe, decide, execute, persist cycle until a terminal
// status or the recursion limit.
type Runner struct {
	sc     *StageContext
	limit  int
	stages []struct {
		name string
		fn   Stage
	}
}

// NewRunner builds a runner over a stage context. A non-positive limit
// falls back to the default.
func NewRunner(sc *StageContext, limit int) *Runner {
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	return &Runner{
		sc:    sc,
		limit: limit,
		stages: []struct {
			name string
			fn   Stage
		}{
			{"observe", Observe},
			{"decide", Decide},
			{"execute", Execute},
			{"persist", Persist},
		},
	}
}

// Run executes the loop from the initial state and returns the final state.
// The returned error is non-nil only for context cancellation; exploration
// failure is reported through the final Status.
func (r *Runner) Run(ctx context.Context, s RunState) (RunState, error) {
	invocations := 0
	for {
		for _, stage := range r.stages {
			if err := ctx.Err(); err != nil {
				logging.Session("run cancelled during %s after %d invocations", stage.name, invocations)
				return s, err
			}
			if invocations >= r.limit {
				return r.atCeiling(s, invocations), nil
			}
			invocations++
			delta := stage.fn(ctx, r.sc, s)
			s = Apply(s, delta)
		}
		if s.Status.Terminal() {
			logging.Session("run finished with %s after %d invocations", s.Status, invocations)
			return s, nil
		}
	}
}

// atCeiling resolves a run that hit the invocation limit. A flow end already
// on the state counts as success; anything else is a failure.
func (r *Runner) atCeiling(s RunState, invocations int) RunState {
	if s.Status == StatusFlowEnd {
		logging.Session("recursion limit %d reached with flow already ended", r.limit)
		return s
	}
	logging.SessionError("recursion limit %d reached after %d invocations, marking run failed", r.limit, invocations)
	s.Status = StatusFailure
	s.ActionHistory = append(s.ActionHistory, "FAILURE: recursion limit reached")
	return s
}
