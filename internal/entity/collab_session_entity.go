package entity

import (
	"time"
)

// SessionPermissions controls who may see and mutate a collaborative session.
type SessionPermissions struct {
	AllowPublicView         bool `json:"allow_public_view"`
	RequireApprovalForEdits bool `json:"require_approval_for_edits"`
	MaxCollaborators        int  `json:"max_collaborators"`
}

// SessionSettings are per-session tunables kept alongside the document.
type SessionSettings struct {
	AutoSaveInterval      int    `json:"auto_save_interval"` // seconds
	ConflictResolution    string `json:"conflict_resolution"`
	ActivityRetentionDays int    `json:"activity_retention_days"`
}

// CollabSession is one collaborative research document.
type CollabSession struct {
	SessionID    string
	Title        string
	Description  string
	OwnerID      string
	ResearchData map[string]any
	Permissions  SessionPermissions
	Settings     SessionSettings
	LastSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
