package explore

import (
	"context"
	"time"

	"cartograph/internal/dom"
	"cartograph/internal/graph"
	"cartograph/internal/llm"
)

// Browser is the page-driving surface the stages need. internal/browser
// provides the rod-backed implementation; tests provide fakes.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	TypeText(ctx context.Context, selector, text string) error
	SelectOption(ctx context.Context, selector, value string) error
	CurrentURL(ctx context.Context) (string, error)
	// WaitStable blocks until network activity settles or an internal
	// timeout elapses; a timeout is not an error.
	WaitStable(ctx context.Context) error
	Snapshot(ctx context.Context) ([]dom.SimplifiedElement, error)
}

// Model is the decision-making surface. internal/llm provides provider
// implementations behind a factory.
type Model interface {
	Complete(ctx context.Context, system, user string) (*llm.Completion, error)
}

// GraphWriter is what the execute and persist phases need from the store.
type GraphWriter interface {
	WriteBatch(ctx context.Context, queries []graph.Query) error
	TransitionExists(ctx context.Context, from, to, action, selector, sessionID string) (bool, error)
}

// Credentials to offer on detected login forms. Cleared after a login is
// judged successful so they are never replayed.
type Credentials struct {
	Username string
	Password string
}

const (
	// DefaultDuplicateLimit ends the run after this many consecutive
	// identical actions; the agent is looping.
	DefaultDuplicateLimit = 5
	// DefaultIntraBatchDelay separates actions inside one batch so the page
	// can react between keystroke bursts and clicks.
	DefaultIntraBatchDelay = 500 * time.Millisecond
	// DefaultPostBatchDelay lets client-side routing settle before the landing
	// URL is read.
	DefaultPostBatchDelay = time.Second
)

// StageContext carries the session-scoped collaborators and caches shared by
// all four phases. It is mutable where RunState is not: the frontier, stack
// and dedupe caches are working structures, not reducer-managed state.
type StageContext struct {
	SessionID string

	Browser Browser
	Model   Model
	Graph   GraphWriter

	Frontier *Frontier
	Stack    *BacktrackStack

	// ExecutedTransitions dedupes batches within the session. Both keyings
	// for an executed batch are stored: the bare from-URL form checked before
	// execution, and the same key extended with the landing URL.
	ExecutedTransitions map[string]struct{}

	// ConsecutiveDuplicates counts back-to-back batches skipped because
	// their transition key was already executed.
	ConsecutiveDuplicates int
	DuplicateLimit        int

	Credentials    *Credentials
	LoginAttempted map[string]struct{}
	loginPending   string // URL of the most recent login attempt, "" when none

	IgnoreList []string

	// lastElements is the refined snapshot from the most recent observe,
	// kept so decide can map action identities back to elements.
	lastElements []dom.SimplifiedElement
	// prevURL is the normalized URL observed on the previous iteration.
	prevURL string

	// OnTokens receives per-call token counts from model completions.
	OnTokens func(input, output int)

	IntraBatchDelay time.Duration
	PostBatchDelay  time.Duration
	// Sleep is swapped out in tests.
	Sleep func(time.Duration)
}

// NewStageContext wires a context with defaults applied.
func NewStageContext(sessionID string, b Browser, m Model, g GraphWriter) *StageContext {
	return &StageContext{
		SessionID:           sessionID,
		Browser:             b,
		Model:               m,
		Graph:               g,
		Frontier:            NewFrontier(),
		Stack:               NewBacktrackStack(),
		ExecutedTransitions: map[string]struct{}{},
		LoginAttempted:      map[string]struct{}{},
		DuplicateLimit:      DefaultDuplicateLimit,
		IgnoreList:          dom.DefaultIgnoreList(),
		IntraBatchDelay:     DefaultIntraBatchDelay,
		PostBatchDelay:      DefaultPostBatchDelay,
		Sleep:               time.Sleep,
	}
}

// transitionKey identifies an executed batch for session-level dedupe. Only
// the first action of the batch contributes, matching how a batch is
// recorded as a single edge.
func transitionKey(fromURL string, first PendingAction) string {
	return fromURL + "\x1f" + first.Selector + "\x1f" + first.VisibleText
}

// reportTokens forwards usage to the session tracker when one is attached.
func (sc *StageContext) reportTokens(c *llm.Completion) {
	if sc.OnTokens != nil && c != nil {
		sc.OnTokens(c.InputTokens, c.OutputTokens)
	}
}
