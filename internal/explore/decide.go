package explore

import (
	"context"
	"fmt"

	"cartograph/internal/dom"
	"cartograph/internal/logging"
)

// Decide chooses the next action batch. Deterministic policies run before
// the model is consulted: duplicate-loop detection, backtracking away from
// exhausted pages, and login auto-fill when credentials are on hand.
func Decide(ctx context.Context, sc *StageContext, s RunState) Delta {
	timer := logging.StartTimer(logging.CategoryDecide, "decide")
	defer timer.Stop()

	if s.Status.Terminal() {
		return Delta{}
	}

	if sc.DuplicateLimit > 0 && sc.ConsecutiveDuplicates >= sc.DuplicateLimit {
		logging.Decide("batch skipped %d times in a row, ending flow", sc.ConsecutiveDuplicates)
		return Delta{
			Status:            statusPtr(StatusFlowEnd),
			SetPendingActions: true,
			AppendHistory:     []string{"FLOW_END: action loop detected"},
		}
	}

	if len(s.UnexploredActions) == 0 {
		target := sc.Stack.SelectTarget(sc.Frontier)
		if target == "" || target == s.CurrentURL {
			logging.Decide("frontier exhausted, exploration complete")
			return Delta{
				Status:            statusPtr(StatusFlowEnd),
				SetPendingActions: true,
				AppendHistory:     []string{"FLOW_END: frontier exhausted"},
			}
		}
		logging.Decide("page %s exhausted, backtracking to %s", s.CurrentURL, target)
		return Delta{
			Status:            statusPtr(StatusBacktrack),
			BacktrackTarget:   strPtr(target),
			SetPendingActions: true,
			AppendHistory:     []string{fmt.Sprintf("backtrack from %s to %s", s.CurrentURL, target)},
		}
	}

	if s.LoginDetected && sc.Credentials != nil {
		if batch, ok := loginBatch(sc, s.CurrentURL); ok {
			sc.LoginAttempted[s.CurrentURL] = struct{}{}
			sc.loginPending = s.CurrentURL
			logging.Decide("filling login form at %s", s.CurrentURL)
			return Delta{
				Status:            statusPtr(StatusContinue),
				SetPendingActions: true,
				PendingActions:    batch,
			}
		}
	}

	prompt := buildUserPrompt(s, unexploredListing(sc, s.UnexploredActions), promptHints(sc))
	completion, err := sc.Model.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return failDelta(fmt.Sprintf("model decision failed: %v", err))
	}
	sc.reportTokens(completion)

	batch, flowEnd := ParseDecision(completion.Text)
	if flowEnd {
		logging.Decide("model signalled flow end at %s", s.CurrentURL)
		return Delta{
			Status:            statusPtr(StatusFlowEnd),
			SetPendingActions: true,
			AppendHistory:     []string{"FLOW_END: model finished at " + s.CurrentURL},
		}
	}

	logging.Decide("model chose %d action(s) at %s: %s", len(batch), s.CurrentURL, BatchDescription(batch))
	return Delta{
		Status:            statusPtr(StatusContinue),
		SetPendingActions: true,
		PendingActions:    batch,
	}
}

// unexploredListing renders only unexplored elements for the prompt, modal
// entries leading. IDs missing from the latest snapshot were seen on earlier
// visits; those are listed bare from their identity.
func unexploredListing(sc *StageContext, ids []string) []string {
	byID := make(map[string]dom.SimplifiedElement, len(sc.lastElements))
	for _, el := range sc.lastElements {
		byID[ActionID(el.Selector, el.VisibleText)] = el
	}
	var filtered []dom.SimplifiedElement
	var stale []string
	for _, id := range ids {
		if el, ok := byID[id]; ok {
			filtered = append(filtered, el)
		} else {
			sel, text := SplitActionID(id)
			stale = append(stale, fmt.Sprintf("(previously seen) Text: %q | Selector: %s", text, sel))
		}
	}
	var lines []string
	if len(filtered) > 0 {
		lines = append(lines, dom.FormatElements(filtered))
	}
	return append(lines, stale...)
}

// promptHints surfaces session facts the element listing cannot carry: unspent
// credentials (so the model can finish a login the heuristics could not) and
// an open modal.
func promptHints(sc *StageContext) []string {
	var hints []string
	if sc.Credentials != nil {
		hints = append(hints, fmt.Sprintf(
			"Login credentials are available: username %q, password %q. If a login form is shown, fill it with typeText and click the control that submits it.",
			sc.Credentials.Username, sc.Credentials.Password))
	}
	for _, el := range sc.lastElements {
		if el.InModal {
			hints = append(hints, "A modal dialog is open. Interact with its elements before anything else.")
			break
		}
	}
	return hints
}

// loginBatch builds the three-step credential batch from the latest
// snapshot. Missing selectors defer to the model.
func loginBatch(sc *StageContext, url string) ([]PendingAction, bool) {
	sels, ok := dom.ParseLoginSelectors(sc.lastElements)
	if !ok {
		logging.DecideDebug("login form at %s missing selectors, deferring to model", url)
		return nil, false
	}
	return []PendingAction{
		{Kind: ActionType, Selector: sels.Username, Text: sc.Credentials.Username, VisibleText: sels.UsernameText},
		{Kind: ActionType, Selector: sels.Password, Text: sc.Credentials.Password, VisibleText: sels.PasswordText},
		{Kind: ActionClick, Selector: sels.Submit, VisibleText: sels.SubmitText},
	}, true
}
