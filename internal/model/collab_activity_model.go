package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CollabActivity is the durable activity history behind the bounded
// in-memory log. Rows are written asynchronously by the activity consumer.
type CollabActivity struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    string         `gorm:"type:varchar(32);not null;index:idx_collab_activities_session_created,priority:1" json:"session_id"`
	UserID       string         `gorm:"type:varchar(64);not null" json:"user_id"`
	Username     string         `gorm:"type:varchar(100)" json:"username"`
	ActivityType string         `gorm:"type:varchar(50);not null" json:"activity_type"`
	Content      datatypes.JSON `gorm:"type:jsonb" json:"content,omitempty"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP;index:idx_collab_activities_session_created,priority:2" json:"created_at"`
}

func (CollabActivity) TableName() string {
	return "collaboration_activities"
}
