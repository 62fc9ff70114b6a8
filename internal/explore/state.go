package explore

import (
	"cartograph/internal/graph"
)

// Status routes control flow after each persist phase.
type Status string

const (
	// StatusContinue keeps the loop on the current page.
	StatusContinue Status = "CONTINUE"
	// StatusBacktrack asks observe to navigate to the selected frontier URL.
	StatusBacktrack Status = "BACKTRACK"
	// StatusFlowEnd terminates the run successfully.
	StatusFlowEnd Status = "FLOW_END"
	// StatusFailure terminates the run unsuccessfully.
	StatusFailure Status = "FAILURE"
)

// Terminal reports whether the status stops the loop.
func (s Status) Terminal() bool {
	return s == StatusFlowEnd || s == StatusFailure
}

// RunState is the full loop state threaded through the four phases. Phases
// never mutate it directly; each returns a Delta that the reducer folds in.
type RunState struct {
	CurrentURL         string
	CurrentFingerprint string
	// DOMState is the formatted element listing shown to the model.
	DOMState      string
	ActionHistory []string
	// PendingQueries are planned graph writes awaiting the persist phase.
	PendingQueries []graph.Query
	Status         Status
	PendingActions []PendingAction
	// VisitedFingerprints accumulates every page fingerprint seen this run.
	VisitedFingerprints map[string]struct{}
	// UnexploredActions are the formatted lines for actions not yet tried at
	// the current URL, modal entries first.
	UnexploredActions []string
	LoginDetected     bool
	// BacktrackTarget carries the frontier URL chosen by decide so the next
	// observe can navigate there.
	BacktrackTarget string
}

// NewRunState returns the initial state for a run that begins at startURL.
func NewRunState(startURL string) RunState {
	return RunState{
		CurrentURL:          startURL,
		Status:              StatusContinue,
		VisitedFingerprints: map[string]struct{}{},
	}
}

// Delta is a partial update to RunState. Nil pointer fields and empty slices
// mean "leave as is"; appends accumulate; pending actions replace only when
// SetPendingActions is set, so an empty replacement is expressible.
type Delta struct {
	CurrentURL         *string
	CurrentFingerprint *string
	DOMState           *string
	AppendHistory      []string
	AppendQueries      []graph.Query
	ClearQueries       bool
	Status             *Status
	SetPendingActions  bool
	PendingActions     []PendingAction
	AddFingerprints    []string
	SetUnexplored      bool
	Unexplored         []string
	LoginDetected      *bool
	BacktrackTarget    *string
}

func strPtr(s string) *string    { return &s }
func statusPtr(s Status) *Status { return &s }
func boolPtr(b bool) *bool       { return &b }

// Apply folds a delta into the state and returns the result. Scalars are
// newest-wins, history and queries append, fingerprints union.
func Apply(s RunState, d Delta) RunState {
	if d.CurrentURL != nil {
		s.CurrentURL = *d.CurrentURL
	}
	if d.CurrentFingerprint != nil {
		s.CurrentFingerprint = *d.CurrentFingerprint
	}
	if d.DOMState != nil {
		s.DOMState = *d.DOMState
	}
	if len(d.AppendHistory) > 0 {
		s.ActionHistory = append(s.ActionHistory, d.AppendHistory...)
	}
	if d.ClearQueries {
		s.PendingQueries = nil
	}
	if len(d.AppendQueries) > 0 {
		s.PendingQueries = append(s.PendingQueries, d.AppendQueries...)
	}
	if d.Status != nil {
		s.Status = *d.Status
	}
	if d.SetPendingActions {
		s.PendingActions = d.PendingActions
	}
	if len(d.AddFingerprints) > 0 {
		if s.VisitedFingerprints == nil {
			s.VisitedFingerprints = map[string]struct{}{}
		} else {
			merged := make(map[string]struct{}, len(s.VisitedFingerprints)+len(d.AddFingerprints))
			for fp := range s.VisitedFingerprints {
				merged[fp] = struct{}{}
			}
			s.VisitedFingerprints = merged
		}
		for _, fp := range d.AddFingerprints {
			s.VisitedFingerprints[fp] = struct{}{}
		}
	}
	if d.SetUnexplored {
		s.UnexploredActions = d.Unexplored
	}
	if d.LoginDetected != nil {
		s.LoginDetected = *d.LoginDetected
	}
	if d.BacktrackTarget != nil {
		s.BacktrackTarget = *d.BacktrackTarget
	}
	return s
}
