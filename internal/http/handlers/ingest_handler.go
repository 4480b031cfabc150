// Ingestion HTTP handlers.
//
// This file exposes REST endpoints for feeding the post corpus:
//   - POST /posts/ingest  (store a batch of raw posts for one platform)
//   - POST /scrape        (fetch posts via the scraper sidecar, then store)
//
// Malformed or duplicate posts never fail a batch; they are reported back as
// skip reasons so callers can re-submit safely.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/ingest"
	"github.com/voicemirror/go-voice-backend/internal/scrape"
	"github.com/voicemirror/go-voice-backend/internal/services"
)

// IngestPostsRequest is the JSON payload for storing raw posts directly.
type IngestPostsRequest struct {
	// Platform the posts were captured from.
	Platform string `json:"platform" binding:"required" example:"instagram"`
	// Posts in the platform's raw export shape.
	Posts []ingest.RawPost `json:"posts" binding:"required"`
}

// ScrapeTargetRequest names one account to pull posts for.
type ScrapeTargetRequest struct {
	Platform string `json:"platform" binding:"required" example:"twitter"`
	Username string `json:"username" binding:"required" example:"janedoe"`
}

// ScrapeRequest is the JSON payload for scrape-then-ingest.
type ScrapeRequest struct {
	Targets []ScrapeTargetRequest `json:"targets" binding:"required"`
	// Limit caps posts fetched per target; the sidecar default applies when 0.
	Limit int `json:"limit,omitempty" example:"50"`
}

// ScrapeResponse maps each requested platform to its ingest outcome.
type ScrapeResponse struct {
	Results map[domain.Platform]services.PlatformIngest `json:"results"`
}

// IngestPosts godoc
// @ID          ingestPosts
// @Summary     Ingest raw posts
// @Description Extracts and stores a batch of raw platform posts for the current user. Duplicates and malformed records are skipped, not failed.
// @Tags        Ingestion
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.IngestPostsRequest  true  "Ingest payload"
//
// @Success     200  {object}  services.IngestReport
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /posts/ingest [post]
func (h *Handlers) IngestPosts(c *gin.Context) {
	var req IngestPostsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform and posts are required")
		return
	}

	platform := domain.Platform(strings.ToLower(strings.TrimSpace(req.Platform)))
	report, err := h.ingestSvc.Ingest(c.Request.Context(), userID(c), platform, req.Posts)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPlatform) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeIngestFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}

// ScrapePosts godoc
// @ID          scrapePosts
// @Summary     Scrape and ingest posts
// @Description Fetches recent posts for the given accounts from the scraper sidecar and stores them. Each platform reports its own outcome; one failing platform never hides another's success.
// @Tags        Ingestion
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.ScrapeRequest  true  "Scrape payload"
//
// @Success     200  {object}  handlers.ScrapeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /scrape [post]
func (h *Handlers) ScrapePosts(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "targets are required")
		return
	}

	targets := make([]scrape.Target, 0, len(req.Targets))
	for _, t := range req.Targets {
		targets = append(targets, scrape.Target{
			Platform: domain.Platform(strings.ToLower(strings.TrimSpace(t.Platform))),
			Username: strings.TrimSpace(t.Username),
		})
	}

	results, err := h.ingestSvc.ScrapeAndIngest(c.Request.Context(), userID(c), targets, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoTargets):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one target is required")
		case errors.Is(err, services.ErrInvalidPlatform):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeIngestFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ScrapeResponse{Results: results})
}
