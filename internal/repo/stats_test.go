package repo

import (
	"context"
	"testing"
	"time"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

func TestContentStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	count, maxTS, err := ContentStats(ctx, db, "u1", "")
	if err != nil {
		t.Fatalf("empty stats: %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected (0, nil) for empty table, got (%d, %v)", count, maxTS)
	}

	t1 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	for i, ts := range []time.Time{t1, t2} {
		c := &domain.GeneratedContent{UserID: "u1", Platform: domain.PlatformInstagram, Prompt: "p", Text: "t", CreatedAt: ts}
		if err := CreateContent(ctx, db, c); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	count, maxTS, err = ContentStats(ctx, db, "u1", domain.PlatformInstagram)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if maxTS == nil || !maxTS.Equal(t2) {
		t.Fatalf("maxCreatedAt = %v; want %v", maxTS, t2)
	}
}

func TestPostStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	count, maxTS, err := PostStats(ctx, db, "u1", domain.PlatformTwitter)
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("expected (0, nil, nil) for no posts, got (%d, %v, %v)", count, maxTS, err)
	}

	p := &domain.Post{UserID: "u1", Platform: domain.PlatformTwitter, ExternalID: "e1", PostedAt: time.Now().UTC()}
	if err := CreatePost(ctx, db, p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	count, maxTS, err = PostStats(ctx, db, "u1", domain.PlatformTwitter)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 1 || maxTS == nil {
		t.Fatalf("unexpected stats: (%d, %v)", count, maxTS)
	}
}
