package collab

import (
	"fmt"
	"strings"
	"time"
)

// SectionState is the committed view of one section at detection time.
type SectionState struct {
	Content   string    `json:"content"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// PendingEdit is a staged-but-unsynced mutation of a section.
type PendingEdit struct {
	ChangeID  string      `json:"change_id"`
	SectionID string      `json:"section_id"`
	UserID    string      `json:"user_id"`
	Edit      EditContent `json:"edit"`
	StagedAt  time.Time   `json:"staged_at"`
}

// Resolver detects edit conflicts and reconciles them. Detection is pure
// logic over the session snapshot the manager hands in; resolution never
// mutates session state itself.
type Resolver struct {
	scorer QualityScorer
	now    func() time.Time
}

func NewResolver(scorer QualityScorer) *Resolver {
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	return &Resolver{scorer: scorer, now: func() time.Time { return time.Now().UTC() }}
}

// DefaultStrategy maps a conflict type to its default resolution strategy.
func DefaultStrategy(t ConflictType) ResolutionStrategy {
	switch t {
	case ConflictConcurrentEdit:
		return StrategyMergeChanges
	case ConflictOverwrite:
		return StrategyUserChoice
	case ConflictSectionLock:
		return StrategyTimestampPriority
	case ConflictPermission:
		return StrategyRolePriority
	default:
		return StrategyUserChoice
	}
}

// DetectConflict checks the incoming edit against the section snapshot.
// Rule 1: another user's staged edit to the same section is still unsynced.
// Rule 2: the incoming edit's declared base version predates the committed
// version (lost update). Returns nil when the edit may proceed.
func (r *Resolver) DetectConflict(sessionID, sectionID, userID string, newEdit EditContent, section SectionState, pending []PendingEdit) *Conflict {
	for _, p := range pending {
		if p.SectionID != sectionID || p.UserID == userID {
			continue
		}
		return &Conflict{
			ConflictID: newConflictID(),
			SessionID:  sessionID,
			SectionID:  sectionID,
			User1ID:    p.UserID,
			User2ID:    userID,
			Type:       ConflictConcurrentEdit,
			Content1:   p.Edit,
			Content2:   newEdit,
			Timestamp:  r.now(),
		}
	}

	if newEdit.BaseVersion > 0 && newEdit.BaseVersion < section.Version {
		return &Conflict{
			ConflictID: newConflictID(),
			SessionID:  sessionID,
			SectionID:  sectionID,
			User1ID:    section.UpdatedBy,
			User2ID:    userID,
			Type:       ConflictOverwrite,
			Content1: EditContent{
				Content:     section.Content,
				Timestamp:   section.UpdatedAt,
				BaseVersion: section.Version,
			},
			Content2:  newEdit,
			Timestamp: r.now(),
		}
	}

	return nil
}

// Resolve applies the preferred strategy, or the per-type default when none
// is given. Resolution is advisory except for the priority strategies, which
// pick a deterministic winner.
func (r *Resolver) Resolve(conflict Conflict, preferred ResolutionStrategy) Resolution {
	strategy := preferred
	if strategy == "" {
		strategy = DefaultStrategy(conflict.Type)
	}

	res := Resolution{
		ConflictID: conflict.ConflictID,
		Strategy:   strategy,
		Timestamp:  r.now(),
	}

	switch strategy {
	case StrategyMergeChanges:
		return r.resolveMerge(conflict, res)
	case StrategyUserChoice:
		return r.resolveUserChoice(conflict, res)
	case StrategyTimestampPriority:
		return r.resolveTimestampPriority(conflict, res)
	case StrategyRolePriority:
		return r.resolveRolePriority(conflict, res)
	default:
		return r.resolveUserChoice(conflict, res)
	}
}

func (r *Resolver) resolveMerge(conflict Conflict, res Resolution) Resolution {
	analysis := AnalyzeMerge(conflict.Content1.Content, conflict.Content2.Content)
	res.MergeMetadata = &analysis

	if analysis.CanAutoMerge {
		merged := PerformAutomaticMerge(conflict.Content1.Content, conflict.Content2.Content)
		res.Success = true
		res.MergedContent = &merged
		return res
	}

	// Manual resolution required; surface the structured regions and
	// human-readable suggestions instead of guessing.
	res.Success = false
	res.RequiresUserInput = true
	analysis.Suggestions = append(analysis.Suggestions, r.mergeSuggestions(conflict)...)
	res.MergeMetadata = &analysis
	return res
}

func (r *Resolver) resolveUserChoice(conflict Conflict, res Resolution) Resolution {
	content1 := conflict.Content1
	content2 := conflict.Content2

	res.Success = false
	res.RequiresUserInput = true
	res.Options = map[string]ConflictOption{
		"option_1": {
			UserID:      conflict.User1ID,
			Content:     &content1,
			Description: "Accept changes from first user",
		},
		"option_2": {
			UserID:      conflict.User2ID,
			Content:     &content2,
			Description: "Accept changes from second user",
		},
		"option_3": {
			Description: "Manual merge required",
			Suggestions: r.mergeSuggestions(conflict),
		},
	}
	return res
}

// resolveTimestampPriority lets the later logical timestamp win outright.
// Equal timestamps resolve to the second editor, keeping the total order
// deterministic regardless of call order.
func (r *Resolver) resolveTimestampPriority(conflict Conflict, res Resolution) Resolution {
	winning := conflict.Content2
	winner := conflict.User2ID
	if conflict.Content1.Timestamp.After(conflict.Content2.Timestamp) {
		winning = conflict.Content1
		winner = conflict.User1ID
	}

	res.Success = true
	res.ResolvedContent = &winning
	res.WinningUser = winner
	res.Reason = "timestamp_priority"
	return res
}

// resolveRolePriority lets the higher collaboration role win; role ties fall
// back to timestamp priority.
func (r *Resolver) resolveRolePriority(conflict Conflict, res Resolution) Resolution {
	p1 := conflict.User1Role.Priority()
	p2 := conflict.User2Role.Priority()

	if p1 == p2 {
		res = r.resolveTimestampPriority(conflict, res)
		res.Reason = "role_priority_timestamp_fallback"
		return res
	}

	winning := conflict.Content1
	winner := conflict.User1ID
	if p2 > p1 {
		winning = conflict.Content2
		winner = conflict.User2ID
	}

	res.Success = true
	res.ResolvedContent = &winning
	res.WinningUser = winner
	res.Reason = "role_priority"
	return res
}

func (r *Resolver) mergeSuggestions(conflict Conflict) []MergeSuggestion {
	suggestions := []MergeSuggestion{
		{
			SuggestionID: "keep_both_attributed",
			Description:  "Keep both changes with user attribution",
			Preview: fmt.Sprintf("[Edit by %s]: %s\n[Edit by %s]: %s",
				conflict.User1ID, truncate(conflict.Content1.Content, 100),
				conflict.User2ID, truncate(conflict.Content2.Content, 100)),
			Confidence: 0.8,
		},
		{
			SuggestionID: "merge_complementary",
			Description:  "Merge non-conflicting parts of both changes",
			Preview:      truncate(PerformAutomaticMerge(conflict.Content1.Content, conflict.Content2.Content), 200),
			Confidence:   0.6,
		},
	}

	metrics1 := r.scorer.Score(conflict.Content1.Content)
	metrics2 := r.scorer.Score(conflict.Content2.Content)

	preferredUser := conflict.User2ID
	preferredContent := conflict.Content2.Content
	if metrics1.OverallScore > metrics2.OverallScore {
		preferredUser = conflict.User1ID
		preferredContent = conflict.Content1.Content
	}
	diff := metrics1.OverallScore - metrics2.OverallScore
	if diff < 0 {
		diff = -diff
	}

	suggestions = append(suggestions, MergeSuggestion{
		SuggestionID: "quality_based",
		Description:  fmt.Sprintf("Choose higher quality content (user %s)", preferredUser),
		Preview:      truncate(preferredContent, 200),
		Confidence:   diff,
	})
	return suggestions
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
