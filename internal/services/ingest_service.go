// Package services – IngestService
//
// This file implements IngestService, which normalizes raw scraped posts and
// stores them, and orchestrates the scraping collaborator across platforms.
// Per-post extraction failures are absorbed and reported as skips, never as a
// whole-request failure; per-platform scrape failures are returned as a mixed
// result, never collapsed into a single error.
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/ingest"
	"github.com/voicemirror/go-voice-backend/internal/repo"
	"github.com/voicemirror/go-voice-backend/internal/scrape"
)

// Scraper is the scraping collaborator contract required by IngestService.
type Scraper interface {
	// Fetch returns raw posts per platform. A failing platform carries its
	// error in the result; other platforms are unaffected.
	Fetch(ctx context.Context, targets []scrape.Target, limit int) map[domain.Platform]scrape.Result
}

// IngestService stores normalized posts and drives scrape-then-ingest flows.
type IngestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Scraper is the opaque scraping collaborator. Optional: plain ingestion
	// works without it.
	Scraper Scraper
}

// IngestReport summarizes one ingestion batch.
type IngestReport struct {
	Stored  int      `json:"stored"`
	Skipped []string `json:"skipped,omitempty"`
}

// PlatformIngest is the per-platform outcome of a scrape-then-ingest run.
type PlatformIngest struct {
	IngestReport
	Error string `json:"error,omitempty"`
}

// Ingest extracts and stores a batch of raw posts for userID on platform.
// Malformed records and duplicates are skipped with a reason; only unexpected
// persistence failures abort the batch.
func (s *IngestService) Ingest(ctx context.Context, userID string, platform domain.Platform, raws []ingest.RawPost) (*IngestReport, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("platform", string(platform)),
			attribute.Int("raw_count", len(raws)),
		),
	)
	defer span.End()

	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	report := &IngestReport{}
	for i, raw := range raws {
		if raw.ExternalID == "" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("post %d: missing external id", i))
			continue
		}
		post := ingest.Extract(userID, platform, raw)
		if err := repo.CreatePost(ctx, s.DB, &post); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				report.Skipped = append(report.Skipped, fmt.Sprintf("post %s: already ingested", raw.ExternalID))
				continue
			}
			return nil, err
		}
		report.Stored++
	}
	return report, nil
}

// ScrapeAndIngest fetches raw posts for each target account and ingests the
// successful platforms. The result maps every requested platform to either an
// ingest report or the scrape error for that platform.
func (s *IngestService) ScrapeAndIngest(ctx context.Context, userID string, targets []scrape.Target, limit int) (map[domain.Platform]PlatformIngest, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "ScrapeAndIngest",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("targets", len(targets)),
		),
	)
	defer span.End()

	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	for _, t := range targets {
		if !t.Platform.Valid() {
			return nil, ErrInvalidPlatform
		}
	}

	results := s.Scraper.Fetch(ctx, targets, limit)
	out := make(map[domain.Platform]PlatformIngest, len(results))
	for platform, res := range results {
		if res.Err != nil {
			out[platform] = PlatformIngest{Error: res.Err.Error()}
			continue
		}
		report, err := s.Ingest(ctx, userID, platform, res.Posts)
		if err != nil {
			out[platform] = PlatformIngest{Error: err.Error()}
			continue
		}
		out[platform] = PlatformIngest{IngestReport: *report}
	}
	return out, nil
}
