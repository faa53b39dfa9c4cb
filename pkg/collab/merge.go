package collab

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// autoMergeThreshold is the minimum fraction of mergeable regions for an
	// automatic merge to be attempted.
	autoMergeThreshold = 0.7

	// lineSimilarityThreshold is the minimum per-line similarity for a
	// replace region to count as compatible.
	lineSimilarityThreshold = 0.5
)

// AnalyzeMerge runs a line-based structural diff between the two contents and
// classifies every opcode region. equal regions are kept, insert/delete
// regions merge without conflict, replace regions conflict unless both sides
// changed the same lines in a recognizably similar way.
func AnalyzeMerge(content1, content2 string) MergeAnalysis {
	lines1 := splitLines(content1)
	lines2 := splitLines(content2)

	matcher := difflib.NewMatcher(lines1, lines2)

	var mergeable []MergeRegion
	var conflicts []ConflictRegion

	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			left := lines1[op.I1:op.I2]
			right := lines2[op.J1:op.J2]
			if changesCompatible(left, right) {
				mergeable = append(mergeable, MergeRegion{
					Type:    "compatible_replace",
					Change1: left,
					Change2: right,
				})
			} else {
				conflicts = append(conflicts, ConflictRegion{
					Type:      "incompatible_replace",
					LineRange: [2]int{op.I1, op.I2},
					Content1:  left,
					Content2:  right,
				})
			}
		case 'i':
			mergeable = append(mergeable, MergeRegion{
				Type:    "insert",
				Content: lines2[op.J1:op.J2],
			})
		case 'd':
			mergeable = append(mergeable, MergeRegion{
				Type:    "delete",
				Content: lines1[op.I1:op.I2],
			})
		}
	}

	denom := len(mergeable) + len(conflicts)
	if denom == 0 {
		denom = 1
	}
	confidence := float64(len(mergeable)) / float64(denom)

	return MergeAnalysis{
		CanAutoMerge: len(conflicts) == 0 && confidence > autoMergeThreshold,
		Confidence:   confidence,
		Mergeable:    mergeable,
		Conflicts:    conflicts,
		Suggestions:  suggestionsFromConflicts(conflicts),
	}
}

// PerformAutomaticMerge reconstructs the merged content. Equal regions come
// through once, inserts come from the second version, deletes drop out, and
// compatible replaces keep both versions concatenated.
func PerformAutomaticMerge(content1, content2 string) string {
	lines1 := splitLines(content1)
	lines2 := splitLines(content2)

	matcher := difflib.NewMatcher(lines1, lines2)

	var merged []string
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			merged = append(merged, lines1[op.I1:op.I2]...)
		case 'i':
			merged = append(merged, lines2[op.J1:op.J2]...)
		case 'd':
			// dropped
		case 'r':
			merged = append(merged, lines1[op.I1:op.I2]...)
			merged = append(merged, lines2[op.J1:op.J2]...)
		}
	}
	return strings.Join(merged, "\n")
}

// changesCompatible reports whether two replacement regions can be treated as
// the same change: equal line counts and every corresponding non-blank line
// pair at least lineSimilarityThreshold similar.
func changesCompatible(lines1, lines2 []string) bool {
	if len(lines1) != len(lines2) {
		return false
	}
	for i := range lines1 {
		l1 := strings.TrimSpace(lines1[i])
		l2 := strings.TrimSpace(lines2[i])
		if l1 == "" || l2 == "" {
			continue
		}
		if lineSimilarity(lines1[i], lines2[i]) < lineSimilarityThreshold {
			return false
		}
	}
	return true
}

// lineSimilarity is a normalized edit-similarity ratio over characters.
func lineSimilarity(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func suggestionsFromConflicts(conflicts []ConflictRegion) []MergeSuggestion {
	var suggestions []MergeSuggestion
	for i, c := range conflicts {
		suggestions = append(suggestions, MergeSuggestion{
			SuggestionID: fmt.Sprintf("conflict_region_%d", i+1),
			Description:  fmt.Sprintf("Lines %d-%d changed by both users; pick one side or rewrite", c.LineRange[0]+1, c.LineRange[1]),
			Preview:      previewRegion(c),
			Confidence:   0.5,
		})
	}
	return suggestions
}

func previewRegion(c ConflictRegion) string {
	return fmt.Sprintf("<<< %s\n>>> %s",
		strings.Join(c.Content1, " / "),
		strings.Join(c.Content2, " / "))
}
