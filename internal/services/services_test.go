package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/repo"
)

// newTestDB opens a fresh in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Post{},
		&domain.VoiceProfile{},
		&domain.GeneratedContent{},
		&domain.Feedback{},
		&domain.LearningMetrics{},
		&domain.Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedPosts stores n posts for userID spanning spanDays, all with captions,
// images, and hashtags.
func seedPosts(t *testing.T, db *gorm.DB, userID string, platform domain.Platform, n, spanDays int) []domain.Post {
	t.Helper()
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) // a Monday
	out := make([]domain.Post, 0, n)
	for i := 0; i < n; i++ {
		offset := time.Duration(0)
		if n > 1 {
			offset = time.Duration(i) * time.Duration(spanDays) * 24 * time.Hour / time.Duration(n-1)
		}
		p := domain.Post{
			UserID:     userID,
			Platform:   platform,
			ExternalID: fmt.Sprintf("ext-%d", i),
			Caption:    fmt.Sprintf("Launch day number %d! Grateful for the journey and the growth. #launch #growth", i),
			Hashtags:   []string{"#launch", "#growth"},
			MediaURLs:  []string{fmt.Sprintf("https://cdn.example.com/%d.jpg", i)},
			MediaType:  domain.MediaImage,
			Engagement: domain.EngagementMetrics{Likes: 10 + i, Comments: i},
			PostedAt:   start.Add(offset),
		}
		if err := repo.CreatePost(context.Background(), db, &p); err != nil {
			t.Fatalf("seed post %d: %v", i, err)
		}
		out = append(out, p)
	}
	return out
}
