package explore

import (
	"context"
	"fmt"

	"cartograph/internal/dom"
	"cartograph/internal/graph"
	"cartograph/internal/logging"
)

// Execute runs the pending action batch against the browser, marks each
// attempted action as explored on the page it was taken from, and plans the
// graph writes describing the resulting transition. A batch whose transition
// key was already executed this session is skipped without touching the
// browser; a failing action aborts the rest of its batch and routes the loop
// to a backtrack.
func Execute(ctx context.Context, sc *StageContext, s RunState) Delta {
	timer := logging.StartTimer(logging.CategoryExecute, "execute")
	defer timer.Stop()

	if s.Status.Terminal() || len(s.PendingActions) == 0 {
		return Delta{}
	}

	fromURL := s.CurrentURL
	batch := s.PendingActions
	key := transitionKey(fromURL, batch[0])

	if _, dup := sc.ExecutedTransitions[key]; dup {
		return skipDuplicate(sc, fromURL, batch)
	}
	sc.ConsecutiveDuplicates = 0

	for i, action := range batch {
		if i > 0 {
			sc.Sleep(sc.IntraBatchDelay)
		}
		if err := sc.runAction(ctx, action); err != nil {
			sc.Frontier.MarkExplored(fromURL, action.ID())
			sc.refreshStack(fromURL)
			logging.ExecuteWarn("action failed at %s: %s: %v", fromURL, action.describe(), err)
			return abortBatch(sc, fmt.Sprintf("action failed: %s: %v", action.describe(), err))
		}
		sc.Frontier.MarkExplored(fromURL, action.ID())
		logging.Execute("executed %s", action.describe())
	}
	sc.refreshStack(fromURL)

	sc.Sleep(sc.PostBatchDelay)
	if err := sc.Browser.WaitStable(ctx); err != nil {
		logging.ExecuteWarn("wait after batch: %v", err)
	}
	rawURL, err := sc.Browser.CurrentURL(ctx)
	if err != nil {
		return failDelta(fmt.Sprintf("reading url after batch failed: %v", err))
	}
	toURL := NormalizeURL(rawURL)
	toFingerprint := sc.landingFingerprint(ctx)

	desc := BatchDescription(batch)
	history := fmt.Sprintf("%s [%s → %s]", desc, fromURL, toURL)

	// The store lookup is advisory; the writes are idempotent merges either
	// way, so a stale answer costs nothing.
	exists, err := sc.Graph.TransitionExists(ctx, fromURL, toURL, desc, batch[0].Selector, sc.SessionID)
	if err != nil {
		logging.ExecuteWarn("transition lookup failed: %v", err)
	} else if exists {
		logging.Execute("transition already recorded, merging timestamps: %s", history)
	}

	sc.ExecutedTransitions[key] = struct{}{}
	sc.ExecutedTransitions[key+"\x1f"+toURL] = struct{}{}

	return Delta{
		CurrentURL:        strPtr(toURL),
		Status:            statusPtr(StatusContinue),
		SetPendingActions: true,
		AppendHistory:     []string{history},
		AppendQueries: []graph.Query{
			graph.MergeState(fromURL, s.CurrentFingerprint, sc.SessionID),
			graph.MergeState(toURL, toFingerprint, sc.SessionID),
			graph.MergeTransition(fromURL, toURL, desc, batch[0].Selector, sc.SessionID),
		},
	}
}

// skipDuplicate handles a batch whose transition was already executed: no
// browser calls, actions marked explored so they stop being proposed, and
// the loop guard advanced.
func skipDuplicate(sc *StageContext, fromURL string, batch []PendingAction) Delta {
	sc.ConsecutiveDuplicates++
	for _, action := range batch {
		sc.Frontier.MarkExplored(fromURL, action.ID())
	}
	sc.refreshStack(fromURL)
	logging.Execute("skipped duplicate batch at %s (%d in a row)", fromURL, sc.ConsecutiveDuplicates)

	if sc.DuplicateLimit > 0 && sc.ConsecutiveDuplicates >= sc.DuplicateLimit {
		return Delta{
			Status:            statusPtr(StatusFlowEnd),
			SetPendingActions: true,
			AppendHistory:     []string{"FLOW_END: action loop detected"},
		}
	}
	return Delta{
		Status:            statusPtr(StatusContinue),
		SetPendingActions: true,
		AppendHistory:     []string{fmt.Sprintf("skipped duplicate: %s", BatchDescription(batch))},
	}
}

// landingFingerprint snapshots the page reached by a batch so the merged
// destination node carries a fingerprint before its own observe runs.
func (sc *StageContext) landingFingerprint(ctx context.Context) string {
	elements, err := sc.Browser.Snapshot(ctx)
	if err != nil {
		logging.ExecuteWarn("landing snapshot failed: %v", err)
		return ""
	}
	elements = dom.FilterIgnored(elements, sc.IgnoreList)
	elements = dom.Normalize(elements)
	elements = dom.RefineSelectors(elements)
	return dom.Fingerprint(elements)
}

// refreshStack keeps the backtrack stack consistent with the frontier entry:
// present iff work remains.
func (sc *StageContext) refreshStack(normalized string) {
	e := sc.Frontier.Get(normalized)
	if e == nil || e.Exhausted() {
		sc.Stack.Remove(normalized)
		return
	}
	sc.Stack.Push(normalized)
}

func (sc *StageContext) runAction(ctx context.Context, a PendingAction) error {
	switch a.Kind {
	case ActionClick:
		return sc.Browser.Click(ctx, a.Selector)
	case ActionType:
		return sc.Browser.TypeText(ctx, a.Selector, a.Text)
	case ActionSelect:
		return sc.Browser.SelectOption(ctx, a.Selector, a.Value)
	case ActionNavigate:
		return fmt.Errorf("navigation by URL is disabled")
	}
	return fmt.Errorf("unknown action kind %q", a.Kind)
}

// abortBatch drops the remaining actions and routes to the best remaining
// backtrack target, or ends the flow when none is left.
func abortBatch(sc *StageContext, reason string) Delta {
	delta := Delta{
		SetPendingActions: true,
		AppendHistory:     []string{reason},
	}
	target := sc.Stack.SelectTarget(sc.Frontier)
	if target == "" {
		delta.Status = statusPtr(StatusFlowEnd)
		return delta
	}
	delta.Status = statusPtr(StatusBacktrack)
	delta.BacktrackTarget = strPtr(target)
	return delta
}
