// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// LearningMetrics rollup. Metrics are recomputed in full on every learning
// pass, so writes are upserts keyed by (user_id, platform).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// UpsertMetrics replaces the rollup for a user×platform, creating the row on
// first run. The row ID is stable across recomputations.
func UpsertMetrics(ctx context.Context, db *gorm.DB, m *domain.LearningMetrics) error {
	var existing domain.LearningMetrics
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", m.UserID, m.Platform).
		First(&existing).Error
	switch {
	case err == nil:
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		return db.WithContext(ctx).Save(m).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		return db.WithContext(ctx).Create(m).Error
	default:
		return err
	}
}

// GetMetrics fetches the last computed rollup for a user×platform, or
// ErrNotFound when no learning pass has run yet.
func GetMetrics(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (*domain.LearningMetrics, error) {
	var m domain.LearningMetrics
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
