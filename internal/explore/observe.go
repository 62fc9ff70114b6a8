package explore

import (
	"context"
	"fmt"

	"cartograph/internal/dom"
	"cartograph/internal/logging"
)

// Observe captures the current page: settle the network, read the URL, take
// a refined DOM snapshot, fingerprint it and fold the observation into the
// frontier. When the previous iteration requested a backtrack, observe first
// drives the browser to the chosen target.
func Observe(ctx context.Context, sc *StageContext, s RunState) Delta {
	timer := logging.StartTimer(logging.CategoryObserve, "observe")
	defer timer.Stop()

	if s.BacktrackTarget != "" {
		logging.Observe("backtracking to %s", s.BacktrackTarget)
		if err := sc.Browser.Navigate(ctx, s.BacktrackTarget); err != nil {
			return failDelta(fmt.Sprintf("navigation to backtrack target %s failed: %v", s.BacktrackTarget, err))
		}
	}

	if err := sc.Browser.WaitStable(ctx); err != nil {
		logging.ObserveWarn("wait for network idle: %v", err)
	}

	rawURL, err := sc.Browser.CurrentURL(ctx)
	if err != nil {
		return failDelta(fmt.Sprintf("reading current url failed: %v", err))
	}
	normalized := NormalizeURL(rawURL)

	elements, err := sc.Browser.Snapshot(ctx)
	if err != nil {
		return failDelta(fmt.Sprintf("dom snapshot failed: %v", err))
	}
	elements = dom.FilterIgnored(elements, sc.IgnoreList)
	elements = dom.Normalize(elements)
	elements = dom.RefineSelectors(elements)

	formatted := dom.FormatElements(elements)
	fingerprint := dom.Fingerprint(elements)

	available := make([]string, len(elements))
	modal := make(map[string]bool, len(elements))
	for i, el := range elements {
		id := ActionID(el.Selector, el.VisibleText)
		available[i] = id
		if el.InModal {
			modal[id] = true
		}
	}

	parent := ""
	if sc.prevURL != "" && sc.prevURL != normalized {
		parent = sc.prevURL
	}
	entry := sc.Frontier.Observe(normalized, fingerprint, parent, available, modal)
	sc.refreshStack(normalized)
	sc.lastElements = elements
	sc.prevURL = normalized

	loginDetected := false
	if sc.Credentials != nil && dom.DetectLogin(elements) {
		if _, tried := sc.LoginAttempted[normalized]; !tried {
			loginDetected = true
			logging.Observe("login form detected at %s", normalized)
		}
	}

	// A login attempt that moved the browser off the form is taken as
	// successful; the credentials are spent.
	if sc.loginPending != "" && sc.loginPending != normalized && !dom.DetectLogin(elements) {
		logging.Observe("login at %s appears successful, clearing credentials", sc.loginPending)
		sc.Credentials = nil
		sc.loginPending = ""
	}

	logging.Observe("observed %s: %d elements, %d unexplored, fingerprint %s",
		normalized, len(elements), entry.UnexploredCount(), fingerprint)

	return Delta{
		CurrentURL:         strPtr(normalized),
		CurrentFingerprint: strPtr(fingerprint),
		DOMState:           strPtr(formatted),
		AddFingerprints:    []string{fingerprint},
		SetUnexplored:      true,
		Unexplored:         entry.Unexplored(),
		LoginDetected:      boolPtr(loginDetected),
		BacktrackTarget:    strPtr(""),
		Status:             statusPtr(StatusContinue),
	}
}

func failDelta(reason string) Delta {
	logging.SessionError("%s", reason)
	return Delta{
		Status:        statusPtr(StatusFailure),
		AppendHistory: []string{"FAILURE: " + reason},
	}
}
