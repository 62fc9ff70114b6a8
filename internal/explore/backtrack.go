package explore

import (
	"cartograph/internal/logging"
)

// BacktrackStack is a deduplicated LIFO of frontier URLs that may still hold
// untried actions. Pushing a URL already on the stack moves it to the top.
type BacktrackStack struct {
	urls  []string
	index map[string]int
}

// NewBacktrackStack returns an empty stack.
func NewBacktrackStack() *BacktrackStack {
	return &BacktrackStack{index: map[string]int{}}
}

// Push adds a normalized URL, hoisting it to the top if already present.
func (s *BacktrackStack) Push(normalized string) {
	if pos, ok := s.index[normalized]; ok {
		if pos == len(s.urls)-1 {
			return
		}
		s.urls = append(s.urls[:pos], s.urls[pos+1:]...)
		for i := pos; i < len(s.urls); i++ {
			s.index[s.urls[i]] = i
		}
	}
	s.index[normalized] = len(s.urls)
	s.urls = append(s.urls, normalized)
}

// Remove drops a URL from the stack if present.
func (s *BacktrackStack) Remove(normalized string) {
	pos, ok := s.index[normalized]
	if !ok {
		return
	}
	s.urls = append(s.urls[:pos], s.urls[pos+1:]...)
	delete(s.index, normalized)
	for i := pos; i < len(s.urls); i++ {
		s.index[s.urls[i]] = i
	}
}

// Len returns the stack depth.
func (s *BacktrackStack) Len() int { return len(s.urls) }

// topDown returns the URLs most-recent first.
func (s *BacktrackStack) topDown() []string {
	out := make([]string, len(s.urls))
	for i, u := range s.urls {
		out[len(s.urls)-1-i] = u
	}
	return out
}

// SelectTarget picks the next backtrack destination, preferring breadth
// across site sections. Candidates are non-exhausted stack entries scanned
// most-recent first:
//
//  1. an entry whose top-level section pattern has only one URL in the
//     frontier, so thin sections get visited before deep ones fill out
//  2. an entry with untried modal actions, since modals vanish on navigation
//  3. plain LIFO order
//
// Exhausted entries encountered during the scan are dropped from the stack.
// Returns "" when no candidate remains.
func (s *BacktrackStack) SelectTarget(f *Frontier) string {
	var candidates []string
	for _, u := range s.topDown() {
		e := f.Get(u)
		if e == nil || e.Exhausted() {
			s.Remove(u)
			continue
		}
		candidates = append(candidates, u)
	}
	if len(candidates) == 0 {
		return ""
	}

	counts := f.SectionCounts()
	for _, u := range candidates {
		if counts[SectionPattern(u)] == 1 {
			logging.Decide("backtrack target %s (thin section %s)", u, SectionPattern(u))
			return u
		}
	}
	for _, u := range candidates {
		if f.Get(u).HasUnexploredModal() {
			logging.Decide("backtrack target %s (open modal work)", u)
			return u
		}
	}
	logging.Decide("backtrack target %s (most recent)", candidates[0])
	return candidates[0]
}
