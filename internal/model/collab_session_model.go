package model

import (
	"time"

	"gorm.io/datatypes"
)

// CollabSession is the persisted row behind one collaborative research
// session. The live document state is JSONB; the in-memory manager owns the
// authoritative copy between syncs.
type CollabSession struct {
	SessionID    string         `gorm:"type:varchar(32);primaryKey" json:"session_id"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	OwnerID      string         `gorm:"type:varchar(64);not null;index:idx_collab_sessions_owner" json:"owner_id"`
	ResearchData datatypes.JSON `gorm:"type:jsonb" json:"research_data"`
	Permissions  datatypes.JSON `gorm:"type:jsonb" json:"permissions"`
	Settings     datatypes.JSON `gorm:"type:jsonb" json:"settings"`
	LastSyncAt   *time.Time     `json:"last_sync_at,omitempty"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CollabSession) TableName() string {
	return "collaborative_research_sessions"
}
