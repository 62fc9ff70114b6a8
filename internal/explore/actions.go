// Package explore implements the exploration engine: the four-phase control
// loop (observe, decide, execute, persist), the per-URL frontier with
// backtracking, and the graph-write planning that records discovered
// transitions.
package explore

import (
	"fmt"
	"strings"
)

// ActionKind discriminates the PendingAction union.
type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionType   ActionKind = "type"
	ActionSelect ActionKind = "select"
	// ActionNavigate exists only as a rejected command path: the agent must
	// operate through UI elements, never by driving the URL bar.
	ActionNavigate ActionKind = "navigate"
)

// PendingAction is one browser action proposed by Decide and consumed by
// Execute. Actions flow in ordered batches of one or more.
type PendingAction struct {
	Kind     ActionKind `json:"kind"`
	Selector string     `json:"selector"`
	Text     string     `json:"text,omitempty"`  // type
	Value    string     `json:"value,omitempty"` // select
	URL      string     `json:"url,omitempty"`   // navigate (rejected)
	// VisibleText disambiguates repeated selectors; it is half of the ActionID.
	VisibleText string `json:"visibleText,omitempty"`
}

// ActionIDSeparator joins selector and visible text into an action identity.
const ActionIDSeparator = "|||"

// ActionID returns the composite identity used for per-URL exploration
// tracking. Selectors alone are insufficient: the same selector may match
// several distinct elements in lists.
func ActionID(selector, visibleText string) string {
	return selector + ActionIDSeparator + visibleText
}

// SplitActionID is the inverse of ActionID. Text may itself contain the
// separator only if an element's visible text does, which truncation at 30
// runes makes vanishingly unlikely; the first occurrence wins regardless.
func SplitActionID(id string) (selector, visibleText string) {
	idx := strings.Index(id, ActionIDSeparator)
	if idx < 0 {
		return id, ""
	}
	return id[:idx], id[idx+len(ActionIDSeparator):]
}

// ID returns the action's composite identity.
func (a PendingAction) ID() string {
	return ActionID(a.Selector, a.VisibleText)
}

func (a PendingAction) verb() string {
	switch a.Kind {
	case ActionClick:
		return "clickElement"
	case ActionType:
		return "typeText"
	case ActionSelect:
		return "selectOption"
	case ActionNavigate:
		return "navigate"
	}
	return string(a.Kind)
}

func (a PendingAction) describe() string {
	switch a.Kind {
	case ActionType:
		return fmt.Sprintf("%s on %s with text %q", a.verb(), a.Selector, a.Text)
	case ActionSelect:
		return fmt.Sprintf("%s on %s with value %q", a.verb(), a.Selector, a.Value)
	case ActionNavigate:
		return fmt.Sprintf("%s to %s", a.verb(), a.URL)
	default:
		return fmt.Sprintf("%s on %s", a.verb(), a.Selector)
	}
}

// BatchDescription synthesizes the single human-readable transition label for
// an executed batch, e.g.
//
//	Batch: typeText on #username with text "admin" → clickElement on #submit
//
// A single-action batch is described without the Batch prefix.
func BatchDescription(batch []PendingAction) string {
	if len(batch) == 0 {
		return ""
	}
	parts := make([]string, len(batch))
	for i, a := range batch {
		parts[i] = a.describe()
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "Batch: " + strings.Join(parts, " → ")
}
