package specification

import (
	"time"

	"gorm.io/gorm"
)

// BySessionID filters by collaborative session id
type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByOwnerID filters sessions by their owner
type ByOwnerID struct {
	OwnerID string
}

func (s ByOwnerID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

// ByActivityType filters the activity history by type
type ByActivityType struct {
	ActivityType string
}

func (s ByActivityType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("activity_type = ?", s.ActivityType)
}

// CreatedAfter filters rows created at or after the given instant
type CreatedAfter struct {
	Since time.Time
}

func (s CreatedAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at >= ?", s.Since)
}
