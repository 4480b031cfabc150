// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, auth, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/voicemirror/go-voice-backend/docs"
	"github.com/voicemirror/go-voice-backend/internal/config"
	"github.com/voicemirror/go-voice-backend/internal/http/handlers"
	"github.com/voicemirror/go-voice-backend/internal/http/middleware"
	"github.com/voicemirror/go-voice-backend/internal/repo"
	"github.com/voicemirror/go-voice-backend/internal/scrape"
	"github.com/voicemirror/go-voice-backend/internal/services"
	"github.com/voicemirror/go-voice-backend/internal/textgen"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// NewBackend selects the text generation backend from configuration. The
// template backend is fully offline and needs no credentials; the gemini
// backend requires an API key and is constructed against the default model
// ladder.
func NewBackend(ctx context.Context, cfg config.TextgenConfig) (textgen.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "template":
		return textgen.Template{}, nil
	case "gemini":
		return textgen.NewGemini(ctx, cfg.GeminiAPIKey, nil)
	default:
		return nil, fmt.Errorf("httpapi: unknown textgen backend %q", cfg.Backend)
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency, auth
// and rate limiting, CORS and security headers, health and metrics endpoints,
// and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. JWT auth (soft when no secret configured)
// 10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, backend textgen.Backend, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// Response compression. /metrics stays uncompressed for scrapers.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting). The lookup scopes
	// replay detection by the :platform path param; POST /generate carries
	// the platform in the body and dedupes in its handler instead.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) JWT bearer auth. With no secret this is a no-op and the demo
	// X-User-ID header keeps working.
	r.Use(middleware.JWTAuth(middleware.AuthOptions{
		Secret:   cfg.Auth.JWTSecret,
		Required: cfg.Auth.JWTRequired,
	}))

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (generated spec lives in the docs package)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/backend
	profileSvc := services.NewProfileService(db)
	profileSvc.Weights = services.ConfidenceWeights{
		Sample:       cfg.Profile.SampleWeight,
		Range:        cfg.Profile.RangeWeight,
		Completeness: cfg.Profile.CompletenessWeight,
	}.Normalize()

	ingestSvc := &services.IngestService{
		DB:      db,
		Scraper: scrape.NewClient(scrape.WithBaseURL(cfg.ScraperBaseURL)),
	}
	genSvc := &services.GenerationService{
		DB:             db,
		Backend:        backend,
		Profiles:       profileSvc,
		MaxVariations:  cfg.Textgen.MaxVariations,
		BackendTimeout: cfg.Textgen.Timeout,
	}
	fbSvc := &services.FeedbackService{DB: db}
	learningSvc := &services.LearningService{
		DB:                   db,
		Profiles:             profileSvc,
		ResynthesisThreshold: cfg.Learning.ResynthesisThreshold,
	}
	h := handlers.New(ingestSvc, profileSvc, genSvc, fbSvc, learningSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Ingestion
		api.POST("/posts/ingest", h.IngestPosts)
		api.POST("/scrape", h.ScrapePosts)

		// Voice profiles
		api.POST("/profiles/:platform/synthesize", h.SynthesizeProfile)
		api.GET("/profiles/:platform", h.GetProfile)
		api.GET("/profiles/:platform/versions/:version", h.GetProfileVersion)

		// Content generation
		api.POST("/generate", h.GenerateContent)
		api.GET("/content", h.ListContent)
		api.GET("/content/:id", h.GetContent)

		// Feedback and learning
		api.POST("/feedback", h.SubmitFeedback)
		api.POST("/learning/:platform/run", h.RunLearning)
		api.GET("/learning/:platform", h.GetLearning)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
