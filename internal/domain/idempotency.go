// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed
// generation request, keyed by (user_id, platform, key). It enables safe
// retries of POST /generate by returning the originally produced variations
// without re-invoking the text backend.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_platform_key,priority:1"`
	Platform  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_platform_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_platform_key,priority:3"`
	ContentID string    `gorm:"type:TEXT NOT NULL"` // first variation of the original response
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
