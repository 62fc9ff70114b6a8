package graph

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteBatchAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []Query{
		MergeState("https://site/home", "fp-home", "sess1"),
		MergeState("https://site/about", "", "sess1"),
		MergeTransition("https://site/home", "https://site/about", "clickElement on #about", "#about", "sess1"),
	}
	if err := s.WriteBatch(ctx, batch); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	states, err := s.States(ctx, "sess1")
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 states, got %d", len(states))
	}

	transitions, err := s.Transitions(ctx, "sess1")
	if err != nil {
		t.Fatalf("transitions: %v", err)
	}
	if len(transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitions))
	}
	tr := transitions[0]
	if tr.FromURL != "https://site/home" || tr.ToURL != "https://site/about" || tr.Selector != "#about" {
		t.Errorf("transition = %+v", tr)
	}
}

func TestWriteBatchIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []Query{
		MergeState("https://site/home", "fp1", "sess1"),
		MergeTransition("https://site/home", "https://site/about", "click", "#a", "sess1"),
	}
	for i := 0; i < 3; i++ {
		if err := s.WriteBatch(ctx, batch); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	states, _ := s.States(ctx, "sess1")
	transitions, _ := s.Transitions(ctx, "sess1")
	if len(states) != 1 || len(transitions) != 1 {
		t.Errorf("re-running a batch must not duplicate rows: %d states, %d transitions", len(states), len(transitions))
	}
}

func TestMergeStateUpdatesFingerprint(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteBatch(ctx, []Query{MergeState("https://site/home", "", "sess1")}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteBatch(ctx, []Query{MergeState("https://site/home", "fp-later", "sess1")}); err != nil {
		t.Fatal(err)
	}
	states, _ := s.States(ctx, "sess1")
	if len(states) != 1 || states[0].Fingerprint != "fp-later" {
		t.Errorf("fingerprint not refreshed: %+v", states)
	}
}

func TestTransitionExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	exists, err := s.TransitionExists(ctx, "a", "b", "click", "#x", "sess1")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("empty store reported a transition")
	}

	if err := s.WriteBatch(ctx, []Query{MergeTransition("a", "b", "click", "#x", "sess1")}); err != nil {
		t.Fatal(err)
	}
	exists, err = s.TransitionExists(ctx, "a", "b", "click", "#x", "sess1")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("recorded transition not found")
	}

	// Another session's identical edge is a different row.
	exists, _ = s.TransitionExists(ctx, "a", "b", "click", "#x", "sess2")
	if exists {
		t.Error("session isolation broken")
	}

	// An empty selector matches the edge regardless of its selector.
	exists, err = s.TransitionExists(ctx, "a", "b", "click", "", "sess1")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("empty selector should match any edge")
	}
	exists, _ = s.TransitionExists(ctx, "a", "b", "drag", "", "sess1")
	if exists {
		t.Error("empty selector must still match the other edge fields")
	}
}

func TestSessionFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.WriteBatch(ctx, []Query{
		MergeState("https://site/home", "fp", "sess1"),
		MergeState("https://site/home", "fp", "sess2"),
	}); err != nil {
		t.Fatal(err)
	}

	all, _ := s.States(ctx, "")
	one, _ := s.States(ctx, "sess1")
	if len(all) != 2 || len(one) != 1 {
		t.Errorf("filtering wrong: all=%d one=%d", len(all), len(one))
	}
}

func TestWriteBatchEmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	if err := s.WriteBatch(context.Background(), nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
}
