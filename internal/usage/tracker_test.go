package usage

import (
	"testing"
)

func TestTrackAccumulates(t *testing.T) {
	tr, err := NewTracker(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tr.Track("sess1", "model-a", 100, 20)
	tr.Track("sess1", "model-a", 50, 10)
	tr.Track("sess2", "model-b", 5, 1)

	s1 := tr.Session("sess1")
	if s1.Input != 150 || s1.Output != 30 || s1.Calls != 2 {
		t.Errorf("sess1 = %+v", s1)
	}
	if got := s1.Total(); got != 180 {
		t.Errorf("total = %d", got)
	}
	if s2 := tr.Session("sess2"); s2.Calls != 1 {
		t.Errorf("sess2 = %+v", s2)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewTracker(dir)
	if err != nil {
		t.Fatal(err)
	}
	tr.Track("sess1", "model-a", 100, 20)
	if err := tr.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := NewTracker(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := reloaded.Session("sess1")
	if s.Input != 100 || s.Output != 20 {
		t.Errorf("reloaded = %+v", s)
	}
	if reloaded.Session("sess1").Calls != 1 {
		t.Errorf("calls not persisted")
	}
}

func TestUnknownSessionIsZero(t *testing.T) {
	tr, err := NewTracker(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if c := tr.Session("ghost"); c.Total() != 0 {
		t.Errorf("unknown session = %+v", c)
	}
}
