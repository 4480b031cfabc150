// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// ContentStats returns aggregate metadata for a user's generated content: the
// total number of rows and the greatest CreatedAt timestamp among those rows.
//
// When the user has no content, the returned count is 0 and maxCreatedAt is
// nil.
func ContentStats(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.GeneratedContent{}).Where("user_id = ?", userID)
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// PostStats returns aggregate metadata for a user's ingested posts on one
// platform: the total number of rows and the greatest UpdatedAt timestamp.
func PostStats(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Post{}).Where("user_id = ? AND platform = ?", userID, platform)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
