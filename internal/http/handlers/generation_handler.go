// Content generation HTTP handlers.
//
// This file exposes REST endpoints for generated content:
//   - POST /generate       (produce and persist variations)
//   - GET  /content        (list, paginated, ETag support)
//   - GET  /content/{id}   (fetch one item)
//
// Generation degrades gracefully: individual variation failures are returned
// in-band next to the successful items; only a batch with zero successes is
// an error (503).
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/http/middleware"
	"github.com/voicemirror/go-voice-backend/internal/repo"
	"github.com/voicemirror/go-voice-backend/internal/services"
)

// idempotencyTTL is how long a completed POST /generate can be replayed via
// the Idempotency-Key header.
const idempotencyTTL = 24 * time.Hour

// GenerateRequest is the JSON payload for producing content variations.
type GenerateRequest struct {
	// Platform to generate for.
	Platform string `json:"platform" binding:"required" example:"instagram"`
	// Context is the topic or occasion to write about.
	Context string `json:"context" binding:"required" example:"launching our new analytics dashboard"`
	// ContentType selects what to produce: caption, hashtags, or full.
	// Empty defaults to caption.
	ContentType string `json:"content_type" example:"caption"`
	// VariationCount asks for that many alternatives (1-5, default 1).
	VariationCount int `json:"variation_count,omitempty" example:"3"`
	// Strict fails with 404 instead of using the neutral default profile.
	Strict bool `json:"strict,omitempty"`
	// ToneAdjustment optionally overrides the profile's primary tone.
	ToneAdjustment string `json:"tone_adjustment,omitempty" example:"professional"`
	// Trend optionally grounds the content in a trending topic.
	Trend *services.TrendContext `json:"trend,omitempty"`
}

// GenerateResponse carries the produced items plus any per-variation errors.
type GenerateResponse struct {
	Items  []domain.GeneratedContent `json:"items"`
	Errors []services.VariationError `json:"errors,omitempty"`
}

// ListContentResponse wraps a page of generated content and pagination info.
type ListContentResponse struct {
	Items      []domain.GeneratedContent `json:"items"`
	Pagination Pagination                `json:"pagination"`
}

// GenerateContent godoc
// @ID          generateContent
// @Summary     Generate content variations
// @Description Produces up to variation_count pieces of on-voice content for the platform and stores them. Failed variations are reported in the errors array; the call only fails outright when every variation failed.
// @Tags        Generation
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Safe-retry key; a repeat within 24h replays the stored result"
// @Param       body             body    handlers.GenerateRequest  true  "Generation payload"
//
// @Success     201  {object}  handlers.GenerateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No profile (strict mode)"
// @Failure     503  {object}  handlers.ErrorResponse  "Text backend unavailable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /generate [post]
func (h *Handlers) GenerateContent(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform and context are required")
		return
	}

	params := services.GenerateParams{
		Platform:       domain.Platform(strings.ToLower(strings.TrimSpace(req.Platform))),
		Context:        req.Context,
		ContentType:    req.ContentType,
		VariationCount: req.VariationCount,
		Strict:         req.Strict,
		ToneAdjustment: req.ToneAdjustment,
		Trend:          req.Trend,
	}
	ctx := c.Request.Context()
	uid := userID(c)

	// Replay a previously completed generation when the client retries with
	// the same Idempotency-Key (best effort, scoped to user+platform).
	var db *gorm.DB
	if svc, ok := h.genSvc.(*services.GenerationService); ok {
		db = svc.DB
	}
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && db != nil {
		rec, err := repo.GetIdempotency(ctx, db, uid, string(params.Platform), idemKey, time.Now().UTC())
		if err == nil {
			item, err := h.genSvc.GetContent(ctx, uid, rec.ContentID)
			if err == nil {
				ok(c, rec.Status, GenerateResponse{Items: []domain.GeneratedContent{*item}})
				return
			}
		}
	}

	items, varErrs, err := h.genSvc.Generate(ctx, uid, params)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPlatform),
			errors.Is(err, services.ErrEmptyContext),
			errors.Is(err, services.ErrInvalidContentType),
			errors.Is(err, services.ErrInvalidVariationCount):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no voice profile synthesized for this platform yet")
		case errors.Is(err, services.ErrBackendUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeBackendUnavailable, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, err.Error())
		}
		return
	}

	// Record the outcome so a retry with the same key replays instead of
	// regenerating. Duplicate inserts from a concurrent retry are ignored.
	if hasKey && db != nil && len(items) > 0 {
		_, _ = repo.CreateIdempotency(ctx, db, uid, string(params.Platform), idemKey, items[0].ID, http.StatusCreated, idempotencyTTL)
	}
	ok(c, http.StatusCreated, GenerateResponse{Items: items, Errors: varErrs})
}

// ListContent godoc
// @ID          listContent
// @Summary     List generated content (paginated)
// @Description Returns a page of the user's generated content, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Generation
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       platform       query   string  false "Filter by platform"          Enums(instagram, twitter, linkedin)
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListContentResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /content [get]
func (h *Handlers) ListContent(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	platform := domain.Platform(strings.ToLower(strings.TrimSpace(c.Query("platform"))))
	if platform != "" && !platform.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.genSvc.(*services.GenerationService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ContentStats(ctx, db, uid, platform)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"content:%s:%s:%d:%d"`, uid, platform, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.genSvc.ListContent(ctx, uid, platform, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListContentResponse{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// GetContent godoc
// @ID          getContent
// @Summary     Get one generated item
// @Description Returns one generated content item owned by the current user.
// @Tags        Generation
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Content ID (UUID)"      format(uuid)
//
// @Success     200  {object} domain.GeneratedContent
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Content not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /content/{id} [get]
func (h *Handlers) GetContent(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content id must be a UUID")
		return
	}

	item, err := h.genSvc.GetContent(c.Request.Context(), userID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "content not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, item)
}
