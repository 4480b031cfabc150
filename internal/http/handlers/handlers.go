// Handler wiring for the public API.
//
// This file defines the service contracts the HTTP layer consumes, the
// Handlers aggregate bound to them, and shared request helpers (user identity,
// pagination). Handlers are transport-thin: they validate input, call
// application services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/ingest"
	"github.com/voicemirror/go-voice-backend/internal/scrape"
	"github.com/voicemirror/go-voice-backend/internal/services"
	"github.com/voicemirror/go-voice-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// IngestService stores raw platform posts for a user.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type IngestService interface {
	// Ingest extracts and persists a batch of raw posts for one platform.
	Ingest(ctx context.Context, userID string, platform domain.Platform, raws []ingest.RawPost) (*services.IngestReport, error)
	// ScrapeAndIngest fetches posts from the scraper sidecar and stores them,
	// reporting per-platform outcomes.
	ScrapeAndIngest(ctx context.Context, userID string, targets []scrape.Target, limit int) (map[domain.Platform]services.PlatformIngest, error)
}

// ProfileService resolves and synthesizes versioned voice profiles.
type ProfileService interface {
	// Get returns the live profile, or the neutral default when fallback is
	// set and none exists yet.
	Get(ctx context.Context, userID string, platform domain.Platform, fallback bool) (*domain.VoiceProfile, error)
	// GetVersion returns one historical profile version.
	GetVersion(ctx context.Context, userID string, platform domain.Platform, version string) (*domain.VoiceProfile, error)
	// Synthesize builds and persists the next profile version from the stored
	// post corpus.
	Synthesize(ctx context.Context, userID string, platform domain.Platform) (*domain.VoiceProfile, error)
}

// GenerationService produces content variations and lists persisted ones.
type GenerationService interface {
	// Generate produces and stores up to VariationCount items, reporting
	// per-variation failures in-band.
	Generate(ctx context.Context, userID string, params services.GenerateParams) ([]domain.GeneratedContent, []services.VariationError, error)
	// ListContent returns a page of the user's generated content and the total.
	ListContent(ctx context.Context, userID string, platform domain.Platform, page, pageSize int) ([]domain.GeneratedContent, int64, error)
	// GetContent fetches one generated item scoped to its owner.
	GetContent(ctx context.Context, userID, id string) (*domain.GeneratedContent, error)
}

// FeedbackService captures ratings on generated content.
type FeedbackService interface {
	// Submit validates and persists one immutable feedback record.
	Submit(ctx context.Context, userID string, params services.SubmitParams) (*domain.Feedback, error)
}

// LearningService runs the feedback-processing pass and serves its metrics.
type LearningService interface {
	// Run processes pending feedback and recomputes the learning metrics.
	Run(ctx context.Context, userID string, platform domain.Platform) (*domain.LearningMetrics, error)
	// Get returns the stored metrics for a user and platform.
	Get(ctx context.Context, userID string, platform domain.Platform) (*domain.LearningMetrics, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for ingestion, profiles, generation,
// feedback, and learning. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	ingestSvc   IngestService
	profileSvc  ProfileService
	genSvc      GenerationService
	fbSvc       FeedbackService
	learningSvc LearningService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(ingestSvc IngestService, profileSvc ProfileService, genSvc GenerationService, fbSvc FeedbackService, learningSvc LearningService) *Handlers {
	return &Handlers{
		ingestSvc:   ingestSvc,
		profileSvc:  profileSvc,
		genSvc:      genSvc,
		fbSvc:       fbSvc,
		learningSvc: learningSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// pathPlatform parses the :platform route segment, failing the request with a
// 400 when it names an unsupported platform.
func pathPlatform(c *gin.Context) (domain.Platform, bool) {
	p := domain.Platform(strings.ToLower(strings.TrimSpace(c.Param("platform"))))
	if !p.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "platform must be one of instagram, twitter, linkedin")
		return "", false
	}
	return p, true
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
