package collab

import (
	"strings"
	"testing"
)

func TestAnalyzeMergeCompatibleReplace(t *testing.T) {
	// Both users touched the same line in a recognizably similar way.
	content1 := "line one\nline two\nline three"
	content2 := "line one\nline two changed\nline three"

	analysis := AnalyzeMerge(content1, content2)

	if !analysis.CanAutoMerge {
		t.Fatalf("expected auto-merge, got %+v", analysis)
	}
	if len(analysis.Conflicts) != 0 {
		t.Errorf("expected zero conflicts, got %d", len(analysis.Conflicts))
	}
	if analysis.Confidence <= 0.7 {
		t.Errorf("confidence = %f, want > 0.7", analysis.Confidence)
	}

	merged := PerformAutomaticMerge(content1, content2)
	// A compatible replace keeps both versions concatenated.
	for _, want := range []string{"line one", "line two", "line two changed", "line three"} {
		if !strings.Contains(merged, want) {
			t.Errorf("merged content missing %q:\n%s", want, merged)
		}
	}
}

func TestAnalyzeMergeInsertOnly(t *testing.T) {
	content1 := "intro\nbody"
	content2 := "intro\nbody\nconclusion"

	analysis := AnalyzeMerge(content1, content2)

	if !analysis.CanAutoMerge {
		t.Fatalf("pure insert should auto-merge: %+v", analysis)
	}

	merged := PerformAutomaticMerge(content1, content2)
	if !strings.Contains(merged, "conclusion") {
		t.Errorf("merged content missing inserted line:\n%s", merged)
	}
}

func TestAnalyzeMergeIncompatibleReplace(t *testing.T) {
	content1 := "the quick brown fox\nshared line"
	content2 := "zzz yyy xxx www\nshared line"

	analysis := AnalyzeMerge(content1, content2)

	if analysis.CanAutoMerge {
		t.Fatal("dissimilar replace must not auto-merge")
	}
	if len(analysis.Conflicts) == 0 {
		t.Fatal("expected at least one conflict region")
	}
	c := analysis.Conflicts[0]
	if c.Type != "incompatible_replace" {
		t.Errorf("conflict type = %s", c.Type)
	}
	if len(c.Content1) == 0 || len(c.Content2) == 0 {
		t.Errorf("conflict region should carry both sides: %+v", c)
	}
	if len(analysis.Suggestions) == 0 {
		t.Error("manual fallback should include suggestions")
	}
}

func TestAnalyzeMergeLineCountMismatchConflicts(t *testing.T) {
	// Replacing one line with two is never a compatible replace, even when
	// the text is similar.
	content1 := "summary of findings"
	content2 := "summary of findings, part one\nsummary of findings, part two"

	analysis := AnalyzeMerge(content1, content2)
	if analysis.CanAutoMerge {
		t.Fatal("line-count mismatch must not auto-merge")
	}
}

func TestLineSimilarity(t *testing.T) {
	tests := []struct {
		a, b    string
		similar bool
	}{
		{"hello world", "hello world", true},
		{"hello world", "hello there world", true},
		{"abcdefgh", "zyxwvuts", false},
	}
	for _, tt := range tests {
		got := lineSimilarity(tt.a, tt.b) >= lineSimilarityThreshold
		if got != tt.similar {
			t.Errorf("lineSimilarity(%q, %q) similar = %v, want %v", tt.a, tt.b, got, tt.similar)
		}
	}
}
