// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Feedback
// model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules (rating validation, ownership,
// impact scoring) to the services package.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// CreateFeedback inserts a feedback row. Learning bookkeeping starts at its
// zero state: processed=false, applied_to_profile=false, impact_score=0.
func CreateFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	fb.Processed = false
	fb.AppliedToProfile = false
	fb.ImpactScore = 0
	return db.WithContext(ctx).Create(fb).Error
}

// GetFeedback fetches one feedback row by ID scoped to its owner, or
// ErrNotFound.
func GetFeedback(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// ListFeedback returns all feedback for a user×platform ordered by creation
// time ascending, for metric recomputation.
func ListFeedback(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListUnprocessedFeedback returns feedback the learning pass has not consumed
// yet, oldest first.
func ListUnprocessedFeedback(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND processed = ?", userID, platform, false).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// MarkFeedbackProcessed sets processed=true and stores the computed impact
// score for one record. The learning pass calls this exactly once per record.
func MarkFeedbackProcessed(ctx context.Context, db *gorm.DB, id string, impact float64) error {
	res := db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]any{"processed": true, "impact_score": impact})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFeedbackApplied flags processed feedback as incorporated into a
// resynthesis.
func MarkFeedbackApplied(ctx context.Context, db *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Where("id IN ? AND processed = ?", ids, true).
		Update("applied_to_profile", true).Error
}

// ListUnappliedFeedback returns processed feedback not yet folded into a
// profile version, oldest first. The synthesizer mines these rows for edited
// texts and issue tags.
func ListUnappliedFeedback(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND processed = ? AND applied_to_profile = ?", userID, platform, true, false).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// LearningTarget identifies one user×platform pair with unprocessed feedback
// waiting for a learning pass.
type LearningTarget struct {
	UserID   string          `gorm:"column:user_id"`
	Platform domain.Platform `gorm:"column:platform"`
}

// ListLearningTargets returns the distinct user×platform pairs that have
// unprocessed feedback. The scheduled learning sweep fans out one pass per
// pair.
func ListLearningTargets(ctx context.Context, db *gorm.DB) ([]LearningTarget, error) {
	var out []LearningTarget
	err := db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Distinct("user_id", "platform").
		Where("processed = ?", false).
		Order("user_id ASC, platform ASC").
		Find(&out).Error
	return out, err
}

// CountUnappliedFeedback returns how many processed records have not yet been
// folded into a profile version. The learning pass compares this against the
// resynthesis threshold.
func CountUnappliedFeedback(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Feedback{}).
		Where("user_id = ? AND platform = ? AND processed = ? AND applied_to_profile = ?", userID, platform, true, false).
		Count(&total).Error
	return total, err
}
