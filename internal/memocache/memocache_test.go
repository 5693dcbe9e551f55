package memocache

import "testing"

func TestPresenceCacheMarksAndReportsSeen(t *testing.T) {
	c := NewPresenceCache()
	if c.Seen("a") {
		t.Fatalf("expected a fresh cache to report unseen")
	}
	c.MarkSeen("a")
	if !c.Seen("a") {
		t.Fatalf("expected a marked key to report seen")
	}
	if c.Seen("b") {
		t.Fatalf("expected an unrelated key to report unseen")
	}
}

func TestPresenceCacheEvictsOldestPastLimit(t *testing.T) {
	c := NewPresenceCacheWithLimit(2)
	c.MarkSeen("a")
	c.MarkSeen("b")
	c.MarkSeen("c") // evicts "a"
	if c.Seen("a") {
		t.Fatalf("expected the oldest entry to be evicted once over capacity")
	}
	if !c.Seen("b") || !c.Seen("c") {
		t.Fatalf("expected the two most recent entries to remain")
	}
}
