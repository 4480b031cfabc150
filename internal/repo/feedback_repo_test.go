package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

func TestFeedbackLifecycle_ProcessedExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	gc := &domain.GeneratedContent{ID: "g1", UserID: "u1", Platform: domain.PlatformInstagram, Prompt: "p", Text: "t", CreatedAt: time.Now().UTC()}
	if err := db.Create(gc).Error; err != nil {
		t.Fatalf("seed content: %v", err)
	}

	fb := &domain.Feedback{
		UserID:    "u1",
		Platform:  domain.PlatformInstagram,
		ContentID: "g1",
		Rating:    domain.RatingThumbsDown,
		// These must be forced back to zero state by the repo.
		Processed:        true,
		AppliedToProfile: true,
		ImpactScore:      99,
	}
	if err := CreateFeedback(ctx, db, fb); err != nil {
		t.Fatalf("create: %v", err)
	}
	if fb.Processed || fb.AppliedToProfile || fb.ImpactScore != 0 {
		t.Fatalf("learning bookkeeping not reset on create: %+v", fb)
	}

	pending, err := ListUnprocessedFeedback(ctx, db, "u1", domain.PlatformInstagram)
	if err != nil {
		t.Fatalf("list unprocessed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 unprocessed record, got %d", len(pending))
	}

	if err := MarkFeedbackProcessed(ctx, db, fb.ID, 2.5); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	// Second attempt is a no-op conflict: the guard clause matches no rows.
	if err := MarkFeedbackProcessed(ctx, db, fb.ID, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double-process, got %v", err)
	}

	pending, err = ListUnprocessedFeedback(ctx, db, "u1", domain.PlatformInstagram)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no unprocessed records, got %d (%v)", len(pending), err)
	}

	n, err := CountUnappliedFeedback(ctx, db, "u1", domain.PlatformInstagram)
	if err != nil || n != 1 {
		t.Fatalf("CountUnapplied = %d, %v; want 1, nil", n, err)
	}

	if err := MarkFeedbackApplied(ctx, db, []string{fb.ID}); err != nil {
		t.Fatalf("mark applied: %v", err)
	}
	n, err = CountUnappliedFeedback(ctx, db, "u1", domain.PlatformInstagram)
	if err != nil || n != 0 {
		t.Fatalf("CountUnapplied after apply = %d, %v; want 0, nil", n, err)
	}

	got, err := GetFeedback(ctx, db, fb.ID, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Processed || !got.AppliedToProfile || got.ImpactScore != 2.5 {
		t.Fatalf("unexpected final state: %+v", got)
	}
}

func TestListFeedback_ScopedAndOrdered(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	gc := &domain.GeneratedContent{ID: "g1", UserID: "u1", Platform: domain.PlatformTwitter, Prompt: "p", Text: "t", CreatedAt: base}
	if err := db.Create(gc).Error; err != nil {
		t.Fatalf("seed content: %v", err)
	}

	for i := 0; i < 3; i++ {
		fb := &domain.Feedback{
			UserID:    "u1",
			Platform:  domain.PlatformTwitter,
			ContentID: "g1",
			Rating:    domain.RatingThumbsUp,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := CreateFeedback(ctx, db, fb); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	got, err := ListFeedback(ctx, db, "u1", domain.PlatformTwitter)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatalf("feedback not ordered ascending")
		}
	}

	other, err := ListFeedback(ctx, db, "u1", domain.PlatformInstagram)
	if err != nil || len(other) != 0 {
		t.Fatalf("expected platform isolation, got %d records (%v)", len(other), err)
	}
}
