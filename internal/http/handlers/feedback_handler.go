// Feedback HTTP handlers.
//
// This file exposes the REST endpoint for rating generated content:
//   - POST /feedback  (submit one immutable feedback record)
//
// Feedback is append-only: a record is created once here and later picked up
// exactly once by the learning pass.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/services"
)

// SubmitFeedbackRequest is the JSON payload for rating generated content.
type SubmitFeedbackRequest struct {
	// ContentID references the generated item being rated.
	ContentID string `json:"content_id" binding:"required" format:"uuid" example:"fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b"`
	// Rating is thumbs_up or thumbs_down.
	Rating string `json:"rating" binding:"required,oneof=thumbs_up thumbs_down" example:"thumbs_up"`
	// Used captures what the user actually kept, possibly edited.
	Used domain.UsedContent `json:"used_content,omitempty"`
	// Issues tags what was wrong (e.g. "tone", "too_long").
	Issues []string `json:"issues,omitempty"`
	// EditedText is the user's rewrite, when they edited before posting.
	EditedText string `json:"edited_text,omitempty"`
	// WasPosted reports whether the content actually went live.
	WasPosted *bool `json:"was_posted,omitempty"`
}

// SubmitFeedbackResponse returns the identifier of the stored record.
type SubmitFeedbackResponse struct {
	ID string `json:"id"`
}

// SubmitFeedback godoc
// @ID          submitFeedback
// @Summary     Submit feedback on generated content
// @Description Records a thumbs rating (plus optional edits and issue tags) for one generated item. The record is immutable and feeds the next learning pass.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.SubmitFeedbackRequest  true  "Feedback payload"
//
// @Success     201  {object} handlers.SubmitFeedbackResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Content not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /feedback [post]
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content_id and a thumbs_up/thumbs_down rating are required")
		return
	}
	if _, err := uuid.Parse(req.ContentID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content_id must be a UUID")
		return
	}

	fb, err := h.fbSvc.Submit(c.Request.Context(), userID(c), services.SubmitParams{
		ContentID:  req.ContentID,
		Rating:     domain.Rating(req.Rating),
		Used:       req.Used,
		Issues:     req.Issues,
		EditedText: req.EditedText,
		WasPosted:  req.WasPosted,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be thumbs_up or thumbs_down")
		case errors.Is(err, services.ErrContentNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "content not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, SubmitFeedbackResponse{ID: fb.ID})
}
