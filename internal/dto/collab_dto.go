package dto

import (
	"time"

	"research-collab-be/pkg/collab"
)

// --- REST ---

type CreateSessionRequest struct {
	Title        string         `json:"title" validate:"required"`
	Description  string         `json:"description"`
	OwnerID      string         `json:"owner_id" validate:"required"`
	InitialState map[string]any `json:"initial_research_data,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ResolveConflictRequest struct {
	Strategy string `json:"strategy,omitempty"` // empty picks the per-type default
}

type SessionInfo struct {
	SessionID string     `json:"session_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
}

type CollaborationMetrics struct {
	TotalUsers      int `json:"total_users"`
	OnlineUsers     int `json:"online_users"`
	TotalActivities int `json:"total_activities"`
	EditCount       int `json:"edit_count"`
	CommentCount    int `json:"comment_count"`
}

type ConflictSummary struct {
	ConflictID   string    `json:"conflict_id"`
	SectionID    string    `json:"section_id"`
	Users        [2]string `json:"users"`
	ConflictType string    `json:"conflict_type"`
	Timestamp    time.Time `json:"timestamp"`
	Resolved     bool      `json:"resolved"`
}

type AnalyticsResponse struct {
	SessionInfo      SessionInfo          `json:"session_info"`
	Metrics          CollaborationMetrics `json:"collaboration_metrics"`
	ActiveUsers      []collab.User        `json:"active_users"`
	RecentActivities []collab.Activity    `json:"recent_activities"`
	Conflicts        []ConflictSummary    `json:"conflicts"`
}

// --- Real-time channel: client -> server ---

type ClientMessage struct {
	Type        string              `json:"type"` // "edit" | "comment" | "sync_request" | "research"
	SectionID   string              `json:"section_id,omitempty"`
	EditData    *collab.EditContent `json:"edit_data,omitempty"`
	CommentData *CommentData        `json:"comment_data,omitempty"`
	Query       string              `json:"query,omitempty"`
}

type CommentData struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// Comment is the stored shape under current_state["comments"].
type Comment struct {
	CommentID string    `json:"comment_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	SectionID string    `json:"section_id"`
	Timestamp time.Time `json:"timestamp"`
	Replies   []Comment `json:"replies"`
	Resolved  bool      `json:"resolved"`
	Tags      []string  `json:"tags"`
}

// --- Real-time channel: server -> client ---

// SessionStateMessage is the full snapshot sent once on join.
type SessionStateMessage struct {
	Type         string         `json:"type"` // "session_state"
	SessionID    string         `json:"session_id"`
	CurrentState map[string]any `json:"current_state"`
	Users        []collab.User  `json:"users"`
	Timestamp    time.Time      `json:"timestamp"`
}

// UserActivityMessage is broadcast on join/leave/edit/comment.
type UserActivityMessage struct {
	Type         string         `json:"type"` // "user_activity"
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id"`
	ActivityType string         `json:"activity_type"`
	Content      map[string]any `json:"content"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ResultMessage wraps a handler result as a direct response to the
// triggering client ("edit_result", "comment_result", "sync_result").
type ResultMessage struct {
	Type      string    `json:"type"`
	Result    any       `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationMessage carries session lifecycle events.
type NotificationMessage struct {
	Type      string         `json:"type"` // "user_notification"
	SessionID string         `json:"session_id"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// --- Handler results ---

type EditResult struct {
	Success      bool               `json:"success"`
	EditID       string             `json:"edit_id,omitempty"`
	Error        string             `json:"error,omitempty"`
	Conflict     bool               `json:"conflict,omitempty"`
	ConflictData *collab.Resolution `json:"conflict_data,omitempty"`
	Staged       bool               `json:"staged,omitempty"`
	ChangeID     string             `json:"change_id,omitempty"`
}

type CommentResult struct {
	Success   bool     `json:"success"`
	CommentID string   `json:"comment_id,omitempty"`
	Comment   *Comment `json:"comment,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type SyncResult struct {
	Success       bool      `json:"success"`
	SyncTimestamp time.Time `json:"sync_timestamp,omitempty"`
	StateChecksum string    `json:"state_checksum,omitempty"`
	Error         string    `json:"error,omitempty"`
}

type ResolveConflictResult struct {
	Success    bool               `json:"success"`
	Resolution *collab.Resolution `json:"resolution,omitempty"`
	Applied    bool               `json:"applied"`
	Error      string             `json:"error,omitempty"`
}
