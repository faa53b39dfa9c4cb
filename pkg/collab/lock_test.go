package collab

import (
	"testing"
)

func TestLockTableMutualExclusion(t *testing.T) {
	table := NewLockTable(nil)

	if !table.Acquire("s1", "intro", "alice") {
		t.Fatal("first acquire should succeed")
	}
	if table.Acquire("s1", "intro", "bob") {
		t.Error("second acquire by different user should fail while held")
	}
	// Re-entrant for the same holder.
	if !table.Acquire("s1", "intro", "alice") {
		t.Error("re-acquire by holder should succeed")
	}
	// Different section is independent.
	if !table.Acquire("s1", "results", "bob") {
		t.Error("acquire on unlocked section should succeed")
	}
	// Different session is independent.
	if !table.Acquire("s2", "intro", "bob") {
		t.Error("acquire in another session should succeed")
	}

	table.Release("s1", "intro", "alice")
	if !table.Acquire("s1", "intro", "bob") {
		t.Error("acquire after release should succeed")
	}
}

func TestLockTableReleaseByNonHolderIsNoop(t *testing.T) {
	table := NewLockTable(nil)

	table.Acquire("s1", "intro", "alice")
	table.Release("s1", "intro", "bob")

	held, ok := table.Holder("s1", "intro")
	if !ok || held.UserID != "alice" {
		t.Errorf("lock should still be held by alice, got %+v (ok=%v)", held, ok)
	}
}

func TestLockTableReleaseAllForUser(t *testing.T) {
	table := NewLockTable(nil)

	table.Acquire("s1", "intro", "alice")
	table.Acquire("s1", "results", "alice")
	table.Acquire("s1", "summary", "bob")

	freed := table.ReleaseAllForUser("s1", "alice")
	if len(freed) != 2 {
		t.Fatalf("expected 2 freed sections, got %v", freed)
	}

	// Every section alice held must now be acquirable by another user.
	if !table.Acquire("s1", "intro", "bob") {
		t.Error("intro should be free after ReleaseAllForUser")
	}
	if !table.Acquire("s1", "results", "carol") {
		t.Error("results should be free after ReleaseAllForUser")
	}
	// Bob's lock survives.
	if table.Acquire("s1", "summary", "carol") {
		t.Error("summary is still held by bob")
	}
}

func TestLockTableHeldSections(t *testing.T) {
	table := NewLockTable(nil)

	table.Acquire("s1", "intro", "alice")
	table.Acquire("s1", "results", "bob")

	held := table.HeldSections("s1")
	if len(held) != 2 {
		t.Fatalf("expected 2 held sections, got %d", len(held))
	}
	if held["intro"].UserID != "alice" || held["results"].UserID != "bob" {
		t.Errorf("unexpected holders: %+v", held)
	}
}
