package chat

import "testing"

func TestTypingRegistry(t *testing.T) {
	r := NewTypingRegistry()

	r.Start("c1", "u2")
	r.Start("c1", "u3")
	r.Start("c2", "u4")

	if got := len(r.Typing("c1")); got != 2 {
		t.Fatalf("expected 2 typers in c1, got %d", got)
	}

	r.Stop("c1", "u2")
	typing := r.Typing("c1")
	if len(typing) != 1 || typing[0] != "u3" {
		t.Fatalf("expected only u3 typing, got %v", typing)
	}

	// Stop for an unknown pair is a no-op.
	r.Stop("c9", "u9")
	if got := len(r.Typing("c2")); got != 1 {
		t.Fatalf("expected c2 untouched, got %d", got)
	}

	r.Clear()
	if r.Typing("c1") != nil || r.Typing("c2") != nil {
		t.Fatalf("expected empty registry after clear")
	}
}
