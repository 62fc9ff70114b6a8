package explore

import (
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL reduces a raw URL to its frontier identity: scheme, host and
// path only, with any trailing slash stripped, so the root collapses to the
// bare origin. Query strings and fragments never distinguish frontier
// entries. The function is idempotent; normalizing an already normalized URL
// returns it unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSuffix(raw, "/")
	}
	path := strings.TrimSuffix(u.Path, "/")
	out := u.Scheme + "://" + u.Host + path
	if u.Scheme == "" && u.Host == "" {
		out = path
	}
	return out
}

// SectionPattern maps a normalized URL to its top-level section, e.g.
// https://site/admin/users -> /admin/*. Root and single-segment URLs map to
// their own path.
func SectionPattern(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	path := u.Path
	if path == "" || path == "/" {
		return "/"
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segs) <= 1 {
		return path
	}
	return "/" + segs[0] + "/*"
}

// ExplorationState tracks one frontier entry: everything the agent knows
// about a URL it has seen.
type ExplorationState struct {
	URL               string
	LatestFingerprint string
	// Available is every action identity ever observed at this URL. It only
	// grows; re-observation merges, never prunes.
	Available map[string]struct{}
	// Explored is the subset of Available that has been attempted.
	Explored map[string]struct{}
	// Modal is the subset of Available observed inside a modal section.
	Modal     map[string]struct{}
	ParentURL string
}

// Exhausted reports whether every known action has been attempted.
func (e *ExplorationState) Exhausted() bool {
	return len(e.Explored) >= len(e.Available)
}

// UnexploredCount returns how many known actions remain untried.
func (e *ExplorationState) UnexploredCount() int {
	n := 0
	for id := range e.Available {
		if _, ok := e.Explored[id]; !ok {
			n++
		}
	}
	return n
}

// Unexplored returns untried action identities sorted for determinism, modal
// actions first.
func (e *ExplorationState) Unexplored() []string {
	var modal, rest []string
	for id := range e.Available {
		if _, ok := e.Explored[id]; ok {
			continue
		}
		if _, ok := e.Modal[id]; ok {
			modal = append(modal, id)
		} else {
			rest = append(rest, id)
		}
	}
	sort.Strings(modal)
	sort.Strings(rest)
	return append(modal, rest...)
}

// HasUnexploredModal reports whether any untried action sits in a modal.
func (e *ExplorationState) HasUnexploredModal() bool {
	for id := range e.Modal {
		if _, ok := e.Explored[id]; !ok {
			return true
		}
	}
	return false
}

// Frontier is the in-memory exploration map keyed by normalized URL. It is
// session-scoped and owned by a single goroutine; no locking.
type Frontier struct {
	entries map[string]*ExplorationState
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{entries: map[string]*ExplorationState{}}
}

// Get returns the entry for a normalized URL, or nil.
func (f *Frontier) Get(normalized string) *ExplorationState {
	return f.entries[normalized]
}

// Len returns the number of known URLs.
func (f *Frontier) Len() int { return len(f.entries) }

// URLs returns every known normalized URL, sorted.
func (f *Frontier) URLs() []string {
	out := make([]string, 0, len(f.entries))
	for u := range f.entries {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Observe registers or refreshes a frontier entry from a page observation.
// Available action identities are merged in, never removed, so an action that
// disappears from the DOM stays known. The parent URL is set only on first
// sight of the URL.
func (f *Frontier) Observe(normalized, fingerprint, parent string, available []string, modal map[string]bool) *ExplorationState {
	e, ok := f.entries[normalized]
	if !ok {
		e = &ExplorationState{
			URL:       normalized,
			Available: map[string]struct{}{},
			Explored:  map[string]struct{}{},
			Modal:     map[string]struct{}{},
			ParentURL: parent,
		}
		f.entries[normalized] = e
	}
	e.LatestFingerprint = fingerprint
	for _, id := range available {
		e.Available[id] = struct{}{}
		if modal[id] {
			e.Modal[id] = struct{}{}
		}
	}
	return e
}

// MarkExplored records an attempted action on the entry for the URL the
// action was taken from. Marking an unknown action also adds it to Available,
// preserving the subset invariant.
func (f *Frontier) MarkExplored(normalized, actionID string) {
	e, ok := f.entries[normalized]
	if !ok {
		e = &ExplorationState{
			URL:       normalized,
			Available: map[string]struct{}{},
			Explored:  map[string]struct{}{},
			Modal:     map[string]struct{}{},
		}
		f.entries[normalized] = e
	}
	e.Available[actionID] = struct{}{}
	e.Explored[actionID] = struct{}{}
}

// SectionCounts tallies frontier URLs per top-level section pattern.
func (f *Frontier) SectionCounts() map[string]int {
	counts := map[string]int{}
	for u := range f.entries {
		counts[SectionPattern(u)]++
	}
	return counts
}

// AllExhausted reports whether no frontier entry has untried actions.
func (f *Frontier) AllExhausted() bool {
	for _, e := range f.entries {
		if !e.Exhausted() {
			return false
		}
	}
	return true
}
