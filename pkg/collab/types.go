package collab

import (
	"time"
)

// Role is the collaboration role a member holds inside one session.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
	RoleViewer       Role = "viewer"
	RoleReviewer     Role = "reviewer"
)

// rolePriority orders roles for role_priority resolution: owner > reviewer > collaborator > viewer.
var rolePriority = map[Role]int{
	RoleOwner:        4,
	RoleReviewer:     3,
	RoleCollaborator: 2,
	RoleViewer:       1,
}

// Priority returns the numeric rank of the role (higher wins).
func (r Role) Priority() int {
	return rolePriority[r]
}

// CanEdit reports whether the role is allowed to mutate section content.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleCollaborator || r == RoleReviewer
}

type ActivityType string

const (
	ActivityJoinSession   ActivityType = "join_session"
	ActivityLeaveSession  ActivityType = "leave_session"
	ActivityAddResearch   ActivityType = "add_research"
	ActivityEditContent   ActivityType = "edit_content"
	ActivityAddComment    ActivityType = "add_comment"
	ActivityUpdatePlan    ActivityType = "update_plan"
	ActivityExportData    ActivityType = "export_data"
	ActivityValidateClaim ActivityType = "validate_claim"
)

type ConflictType string

const (
	ConflictConcurrentEdit ConflictType = "concurrent_edit"
	ConflictOverwrite      ConflictType = "overwrite_conflict"
	ConflictSectionLock    ConflictType = "section_lock_conflict"
	ConflictPermission     ConflictType = "permission_conflict"
)

type ResolutionStrategy string

const (
	StrategyMergeChanges      ResolutionStrategy = "merge_changes"
	StrategyUserChoice        ResolutionStrategy = "user_choice"
	StrategyTimestampPriority ResolutionStrategy = "timestamp_priority"
	StrategyRolePriority      ResolutionStrategy = "role_priority"
)

// User is the ephemeral membership record of one participant in one session.
// A user joining several sessions gets one record per session.
type User struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	Role            Role      `json:"role"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	IsOnline        bool      `json:"is_online"`
	LastActivity    time.Time `json:"last_activity"`
	CurrentLocation string    `json:"current_location"`
}

// Activity is an immutable entry of the per-session activity log.
type Activity struct {
	ActivityID   string         `json:"activity_id"`
	UserID       string         `json:"user_id"`
	Username     string         `json:"username"`
	ActivityType ActivityType   `json:"activity_type"`
	Content      map[string]any `json:"content"`
	Timestamp    time.Time      `json:"timestamp"`
	SessionID    string         `json:"session_id"`
}

// EditContent is the payload one user submitted for a section. Timestamp is the
// logical edit time declared by the client, BaseVersion the section version the
// client based its edit on (lost-update detection).
type EditContent struct {
	Type        string    `json:"type,omitempty"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	BaseVersion int64     `json:"base_version,omitempty"`
	Staged      bool      `json:"staged,omitempty"`
}

// Conflict records two edits to the same section that cannot both apply
// without reconciliation. It stays in the session's registry until resolved
// or abandoned.
type Conflict struct {
	ConflictID string       `json:"conflict_id"`
	SessionID  string       `json:"session_id"`
	SectionID  string       `json:"section_id"`
	User1ID    string       `json:"user1_id"`
	User2ID    string       `json:"user2_id"`
	Type       ConflictType `json:"conflict_type"`
	Content1   EditContent  `json:"content1"`
	Content2   EditContent  `json:"content2"`
	Timestamp  time.Time    `json:"timestamp"`
	Resolved   bool         `json:"resolved"`

	// Roles of the two users at detection time, needed by role_priority.
	User1Role Role `json:"-"`
	User2Role Role `json:"-"`
}

// MergeRegion is one diff region from the merge analysis.
type MergeRegion struct {
	Type    string   `json:"type"` // "insert", "delete", "compatible_replace"
	Content []string `json:"content,omitempty"`
	Change1 []string `json:"change1,omitempty"`
	Change2 []string `json:"change2,omitempty"`
}

// ConflictRegion is an incompatible replace region that blocks auto-merge.
type ConflictRegion struct {
	Type      string   `json:"type"` // always "incompatible_replace"
	LineRange [2]int   `json:"line_range"`
	Content1  []string `json:"content1"`
	Content2  []string `json:"content2"`
}

// MergeSuggestion is a human-readable option offered for manual resolution.
type MergeSuggestion struct {
	SuggestionID string  `json:"suggestion_id"`
	Description  string  `json:"description"`
	Preview      string  `json:"preview"`
	Confidence   float64 `json:"confidence"`
}

// MergeAnalysis is the outcome of the structural diff between two edits.
// Confidence is the fraction of regions that merged without intervention.
type MergeAnalysis struct {
	CanAutoMerge bool              `json:"can_auto_merge"`
	Confidence   float64           `json:"confidence"`
	Mergeable    []MergeRegion     `json:"mergeable_changes"`
	Conflicts    []ConflictRegion  `json:"conflicts"`
	Suggestions  []MergeSuggestion `json:"suggestions"`
}

// ConflictOption is one of the choices presented to the user for user_choice.
type ConflictOption struct {
	UserID      string            `json:"user_id,omitempty"`
	Content     *EditContent      `json:"content,omitempty"`
	Description string            `json:"description"`
	Suggestions []MergeSuggestion `json:"merge_suggestions,omitempty"`
}

// Resolution is the result of applying a resolution strategy to a conflict.
type Resolution struct {
	ConflictID        string             `json:"conflict_id"`
	Strategy          ResolutionStrategy `json:"resolution_strategy"`
	Timestamp         time.Time          `json:"timestamp"`
	Success           bool               `json:"success"`
	RequiresUserInput bool               `json:"requires_user_input,omitempty"`

	// merge_changes outcome
	MergedContent *string        `json:"merged_content,omitempty"`
	MergeMetadata *MergeAnalysis `json:"merge_metadata,omitempty"`

	// user_choice outcome
	Options map[string]ConflictOption `json:"conflict_options,omitempty"`

	// timestamp_priority / role_priority outcome
	ResolvedContent *EditContent `json:"resolved_content,omitempty"`
	WinningUser     string       `json:"winning_user,omitempty"`
	Reason          string       `json:"resolution_reason,omitempty"`
}
