// Package services – FeedbackService
//
// This file implements the FeedbackService, which records ratings (thumbs up
// or down) on generated content. It enforces business rules (valid rating,
// content existence, ownership) and persists the feedback atomically together
// with a snapshot of the generation context, so later learning passes can
// attribute the signal to the profile version that produced the content.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/repo"
)

// FeedbackService implements the use-cases around content feedback.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
}

// SubmitParams carries one feedback submission.
type SubmitParams struct {
	ContentID  string
	Rating     domain.Rating
	Used       domain.UsedContent
	Issues     []string
	EditedText string
	WasPosted  *bool
}

// Submit validates and persists one immutable feedback record for userID.
//
// Semantics and validation:
//   - Rating must be thumbs_up or thumbs_down; otherwise ErrInvalidRating.
//   - ContentID must reference generated content owned by userID; otherwise
//     ErrContentNotFound.
//   - Learning bookkeeping starts at processed=false, appliedToProfile=false,
//     impactScore=0. A rating never mutates the content row itself.
//
// The ownership check and the insert run in one transaction.
func (s *FeedbackService) Submit(ctx context.Context, userID string, params SubmitParams) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("content.id", params.ContentID),
		),
	)
	defer span.End()

	if !params.Rating.Valid() {
		return nil, ErrInvalidRating
	}

	var fb *domain.Feedback
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		content, err := repo.GetContent(ctx, tx, params.ContentID, userID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrContentNotFound
			}
			return err
		}

		genCtx := domain.GenerationContext{
			ProfileVersion: content.ProfileVersion,
			Prompt:         content.Prompt,
		}
		if content.ProfileVersion != "" {
			if p, perr := repo.GetProfileVersion(ctx, tx, userID, content.Platform, content.ProfileVersion); perr == nil {
				genCtx.Confidence = p.Confidence.Overall
			}
		}

		fb = &domain.Feedback{
			UserID:     userID,
			Platform:   content.Platform,
			ContentID:  content.ID,
			Used:       params.Used,
			Rating:     params.Rating,
			Issues:     params.Issues,
			EditedText: params.EditedText,
			WasPosted:  params.WasPosted,
			Context:    genCtx,
		}
		return repo.CreateFeedback(ctx, tx, fb)
	})
	if err != nil {
		return nil, err
	}
	return fb, nil
}
