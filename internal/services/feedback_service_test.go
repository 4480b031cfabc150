package services

import (
	"context"
	"errors"
	"testing"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/repo"
)

// seedContent generates one item for userID via the template backend and
// returns it.
func seedContent(t *testing.T, svc *GenerationService, userID string, platform domain.Platform) domain.GeneratedContent {
	t.Helper()
	items, _, err := svc.Generate(context.Background(), userID, GenerateParams{
		Platform:       platform,
		Context:        "seed prompt",
		ContentType:    ContentTypeFull,
		VariationCount: 1,
	})
	if err != nil {
		t.Fatalf("seed content: %v", err)
	}
	return items[0]
}

func TestSubmit_PersistsImmutableRecord(t *testing.T) {
	gen, profiles := newGenService(t)
	ctx := context.Background()
	seedPosts(t, gen.DB, "u1", domain.PlatformInstagram, 5, 10)
	if _, err := profiles.Synthesize(ctx, "u1", domain.PlatformInstagram); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	content := seedContent(t, gen, "u1", domain.PlatformInstagram)

	svc := &FeedbackService{DB: gen.DB}
	posted := true
	fb, err := svc.Submit(ctx, "u1", SubmitParams{
		ContentID:  content.ID,
		Rating:     domain.RatingThumbsDown,
		Used:       domain.UsedContent{Caption: "my edited caption"},
		Issues:     []string{"tone"},
		EditedText: "my edited caption",
		WasPosted:  &posted,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.ID == "" {
		t.Fatal("missing feedback id")
	}
	if fb.Processed || fb.AppliedToProfile || fb.ImpactScore != 0 {
		t.Fatalf("learning bookkeeping must start at zero: %+v", fb)
	}
	if fb.Platform != domain.PlatformInstagram {
		t.Fatalf("platform not taken from content: %s", fb.Platform)
	}
	if fb.Context.ProfileVersion != "1.0.0" || fb.Context.Prompt != "seed prompt" {
		t.Fatalf("generation context not snapshotted: %+v", fb.Context)
	}
	if fb.Context.Confidence <= 0 {
		t.Fatalf("confidence at generation time not captured: %f", fb.Context.Confidence)
	}

	// The rated content row is untouched.
	after, err := repo.GetContent(ctx, gen.DB, content.ID, "u1")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if after.Text != content.Text || after.Published != content.Published {
		t.Fatal("feedback mutated the content row")
	}
}

func TestSubmit_Validation(t *testing.T) {
	gen, _ := newGenService(t)
	content := seedContent(t, gen, "u1", domain.PlatformTwitter)
	svc := &FeedbackService{DB: gen.DB}
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "u1", SubmitParams{ContentID: content.ID, Rating: "meh"}); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := svc.Submit(ctx, "u1", SubmitParams{ContentID: "missing", Rating: domain.RatingThumbsUp}); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
	// Someone else's content is invisible.
	if _, err := svc.Submit(ctx, "u2", SubmitParams{ContentID: content.ID, Rating: domain.RatingThumbsUp}); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound for foreign content, got %v", err)
	}
}
