// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a post is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Re-inserting an already ingested post (same user, platform, external id)
//     returns ErrDuplicate so the ingest service can count it as skipped.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-constraint violation on insert.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// CreatePost inserts a normalized post. The post ID is assigned here when
// empty. Returns ErrDuplicate when (user_id, platform, external_id) already
// exists.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListPosts returns all posts for a user on one platform, ordered by posting
// time ascending then ID for determinism. It returns an empty slice when the
// user has no posts.
func ListPosts(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		Order("posted_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountPosts returns the total number of posts for a user on one platform.
func CountPosts(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("user_id = ? AND platform = ?", userID, platform).
		Count(&total).Error
	return total, err
}

// MarkPostsAnalyzed stamps AnalyzedAt on the given post IDs. Used by the
// synthesizer after a successful pass.
func MarkPostsAnalyzed(ctx context.Context, db *gorm.DB, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id IN ?", ids).
		Update("analyzed_at", at).Error
}
