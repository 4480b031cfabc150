// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// VoiceProfile model.
//
// Profiles are immutable versioned rows: the live profile for a user×platform
// is the row with the greatest semantic version. Prior versions are retained
// for feedback provenance and rollback.
//
// Error semantics:
//   - GetLatestProfile returns ErrNotFound when no version exists yet.
//   - CreateProfileVersion returns ErrDuplicate when the (user_id, platform,
//     version) tuple already exists. The service layer translates that into a
//     synthesis conflict: a concurrent pass already produced this version.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// CreateProfileVersion inserts a new immutable profile row. The version must
// have been computed by the caller from the latest persisted version; the
// unique index makes the increment race-safe (exactly one winner).
func CreateProfileVersion(ctx context.Context, db *gorm.DB, p *domain.VoiceProfile) error {
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

// GetLatestProfile fetches the live (highest-revision) profile for a
// user×platform, or ErrNotFound. The numeric revision column orders versions;
// the version string is lexicographically unsortable ("1.10.0" < "1.9.0").
func GetLatestProfile(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (*domain.VoiceProfile, error) {
	var p domain.VoiceProfile
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		Order("revision DESC, created_at DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileVersion fetches one specific historical version, or ErrNotFound.
func GetProfileVersion(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform, version string) (*domain.VoiceProfile, error) {
	var p domain.VoiceProfile
	err := db.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND version = ?", userID, platform, version).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountProfileVersions returns how many versions exist for a user×platform.
func CountProfileVersions(ctx context.Context, db *gorm.DB, userID string, platform domain.Platform) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.VoiceProfile{}).
		Where("user_id = ? AND platform = ?", userID, platform).
		Count(&total).Error
	return total, err
}
