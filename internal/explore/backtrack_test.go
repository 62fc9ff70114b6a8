package explore

import "testing"

func TestStackPushDeduplicates(t *testing.T) {
	s := NewBacktrackStack()
	s.Push("a")
	s.Push("b")
	s.Push("a") // hoists a to the top
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
	if got := s.topDown(); got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestSelectTargetSkipsExhausted(t *testing.T) {
	f := NewFrontier()
	s := NewBacktrackStack()

	done := "https://site/x/done"
	open := "https://site/x/open"
	id := ActionID("#a", "A")

	f.Observe(done, "fp", "", []string{id}, nil)
	f.MarkExplored(done, id)
	f.Observe(open, "fp", "", []string{id}, nil)

	s.Push(open)
	s.Push(done)

	if got := s.SelectTarget(f); got != open {
		t.Errorf("expected %s, got %s", open, got)
	}
	// The exhausted entry was dropped during the scan.
	if s.Len() != 1 {
		t.Errorf("exhausted entry should be removed, stack len %d", s.Len())
	}
}

func TestSelectTargetPrefersThinSections(t *testing.T) {
	f := NewFrontier()
	s := NewBacktrackStack()
	id := ActionID("#a", "A")

	// /admin/* is well represented; /reports/* has a single URL.
	for _, u := range []string{
		"https://site/admin/users",
		"https://site/admin/roles",
		"https://site/reports/weekly",
	} {
		f.Observe(u, "fp", "", []string{id}, nil)
		s.Push(u)
	}

	if got := s.SelectTarget(f); got != "https://site/reports/weekly" {
		t.Errorf("expected the thin-section URL, got %s", got)
	}
}

func TestSelectTargetPrefersModalWork(t *testing.T) {
	f := NewFrontier()
	s := NewBacktrackStack()
	plain := ActionID("#a", "A")
	modalID := ActionID("#confirm", "Confirm")

	// Both sections have two URLs, so the thin-section rule does not fire.
	f.Observe("https://site/admin/users", "fp", "", []string{plain}, nil)
	f.Observe("https://site/admin/roles", "fp", "", []string{modalID}, map[string]bool{modalID: true})
	f.Observe("https://site/shop/cart", "fp", "", []string{plain}, nil)
	f.Observe("https://site/shop/checkout", "fp", "", []string{plain}, nil)

	for _, u := range []string{
		"https://site/admin/roles",
		"https://site/admin/users",
		"https://site/shop/cart",
		"https://site/shop/checkout",
	} {
		s.Push(u)
	}

	if got := s.SelectTarget(f); got != "https://site/admin/roles" {
		t.Errorf("expected the modal-bearing URL, got %s", got)
	}
}

func TestSelectTargetLIFOFallback(t *testing.T) {
	f := NewFrontier()
	s := NewBacktrackStack()
	id := ActionID("#a", "A")

	f.Observe("https://site/admin/users", "fp", "", []string{id}, nil)
	f.Observe("https://site/admin/roles", "fp", "", []string{id}, nil)
	s.Push("https://site/admin/users")
	s.Push("https://site/admin/roles")

	if got := s.SelectTarget(f); got != "https://site/admin/roles" {
		t.Errorf("expected most recent, got %s", got)
	}
}

func TestSelectTargetEmpty(t *testing.T) {
	f := NewFrontier()
	s := NewBacktrackStack()
	if got := s.SelectTarget(f); got != "" {
		t.Errorf("empty stack must yield no target, got %q", got)
	}
}
