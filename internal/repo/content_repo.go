// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// GeneratedContent model. Content rows are write-once; ratings live in the
// feedback table.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// CreateContent inserts one generated variation.
func CreateContent(ctx context.Context, db *gorm.DB, c *domain.GeneratedContent) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// CreateContentBatch inserts all variations of one generation request
// atomically.
func CreateContentBatch(ctx context.Context, db *gorm.DB, items []domain.GeneratedContent) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
	}
	return db.WithContext(ctx).Create(&items).Error
}

// GetContent fetches one content row by ID scoped to its owner, or
// ErrNotFound.
func GetContent(ctx context.Context, db *gorm.DB, id, userID string) (*domain.GeneratedContent, error) {
	var c domain.GeneratedContent
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountContent returns the total generated items for a user, optionally
// scoped to one platform (empty platform means all).
func CountContent(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.GeneratedContent{}).Where("user_id = ?", userID)
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListContentPage returns a page of generated content for a user, newest
// first, optionally scoped to one platform.
func ListContentPage(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform, offset, limit int) ([]domain.GeneratedContent, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	var out []domain.GeneratedContent
	err := q.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
