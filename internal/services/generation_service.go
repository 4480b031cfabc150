// Package services – GenerationService
//
// This file implements GenerationService, which turns a voice profile plus a
// free-text context into content variations. Text production is delegated to
// a pluggable textgen.Backend; the service owns instruction building,
// variation fan-out, hashtag selection, engagement estimation, and post-time
// suggestion. A failing variation degrades the batch, it never aborts it:
// callers receive the produced variations plus per-variation errors.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/ingest"
	"github.com/voicemirror/go-voice-backend/internal/repo"
	"github.com/voicemirror/go-voice-backend/internal/textgen"
)

// Content types a generation request may ask for.
const (
	ContentTypeCaption  = "caption"
	ContentTypeHashtags = "hashtags"
	ContentTypeFull     = "full"
)

// TrendContext is optional trending material folded into the instruction.
type TrendContext struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
	Hashtags  []string `json:"hashtags,omitempty"`
}

// GenerateParams describes one generation request.
type GenerateParams struct {
	Platform domain.Platform
	Context  string
	// ContentType selects what to produce; empty defaults to a caption.
	ContentType    string
	VariationCount int
	// Strict fails with ErrProfileNotFound when the user has no profile;
	// otherwise the neutral default profile is used.
	Strict bool
	// ToneAdjustment optionally overrides the profile's primary tone.
	ToneAdjustment string
	Trend          *TrendContext
}

// VariationError reports one failed variation in an otherwise successful
// batch.
type VariationError struct {
	Variation int    `json:"variation"`
	Message   string `json:"message"`
	Transient bool   `json:"transient"`
}

// GenerationService produces and persists content variations.
type GenerationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Backend produces body text from an instruction.
	Backend textgen.Backend
	// Profiles resolves the live (or default) profile to generate against.
	Profiles *ProfileService

	// MaxVariations caps VariationCount; defaults to 5.
	MaxVariations int
	// BackendTimeout bounds each variation's backend call; defaults to 30s.
	BackendTimeout time.Duration
}

// Generate produces params.VariationCount content candidates for userID,
// persists the successful ones, and returns them alongside per-variation
// errors. The whole batch fails only on validation errors, a strict-mode
// profile miss, or when not a single variation could be produced.
func (s *GenerationService) Generate(ctx context.Context, userID string, params GenerateParams) ([]domain.GeneratedContent, []VariationError, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("platform", string(params.Platform)),
			attribute.String("content_type", params.ContentType),
			attribute.Int("variations", params.VariationCount),
		),
	)
	defer span.End()

	if !params.Platform.Valid() {
		return nil, nil, ErrInvalidPlatform
	}
	params.Context = strings.TrimSpace(params.Context)
	if params.Context == "" {
		return nil, nil, ErrEmptyContext
	}
	switch params.ContentType {
	case "":
		params.ContentType = ContentTypeCaption
	case ContentTypeCaption, ContentTypeHashtags, ContentTypeFull:
	default:
		return nil, nil, ErrInvalidContentType
	}
	maxVars := s.MaxVariations
	if maxVars <= 0 {
		maxVars = 5
	}
	if params.VariationCount < 1 || params.VariationCount > maxVars {
		return nil, nil, ErrInvalidVariationCount
	}

	profile, err := s.Profiles.Get(ctx, userID, params.Platform, !params.Strict)
	if err != nil {
		return nil, nil, err
	}

	texts, varErrs := s.produceTexts(ctx, profile, params)

	now := time.Now().UTC()
	items := make([]domain.GeneratedContent, 0, len(texts))
	for _, text := range texts {
		if text == nil {
			continue
		}
		tags := selectHashtags(profile, params, *text)
		items = append(items, domain.GeneratedContent{
			UserID:            userID,
			Platform:          params.Platform,
			Prompt:            params.Context,
			Text:              *text,
			Hashtags:          tags,
			EngagementScore:   estimateEngagement(profile, *text, tags),
			SuggestedPostTime: suggestPostTime(profile, now),
			CharCount:         utf8.RuneCountInString(*text),
			Provider:          s.providerName(params.ContentType),
			ProfileVersion:    profile.Version,
		})
	}

	if len(items) == 0 {
		if len(varErrs) > 0 {
			return nil, varErrs, fmt.Errorf("%w: %s", ErrBackendUnavailable, varErrs[0].Message)
		}
		return nil, nil, ErrBackendUnavailable
	}

	if err := repo.CreateContentBatch(ctx, s.DB, items); err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int("produced", len(items)))
	return items, varErrs, nil
}

// providerName tags hashtag-only content, which never touches the backend.
func (s *GenerationService) providerName(contentType string) string {
	if contentType == ContentTypeHashtags {
		return "strategy"
	}
	return s.Backend.Name()
}

// produceTexts fans the backend call out across variations. Hashtag-only
// requests skip the backend entirely and yield empty bodies.
func (s *GenerationService) produceTexts(ctx context.Context, profile *domain.VoiceProfile, params GenerateParams) ([]*string, []VariationError) {
	n := params.VariationCount
	texts := make([]*string, n)

	if params.ContentType == ContentTypeHashtags {
		empty := ""
		for i := range texts {
			texts[i] = &empty
		}
		return texts, nil
	}

	timeout := s.BackendTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var (
		mu      sync.Mutex
		varErrs []VariationError
		wg      sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			text, err := s.Backend.Generate(vctx, buildInstruction(profile, params, i+1))
			if err != nil {
				mu.Lock()
				varErrs = append(varErrs, VariationError{
					Variation: i + 1,
					Message:   err.Error(),
					Transient: textgen.IsTransient(err),
				})
				mu.Unlock()
				return
			}
			texts[i] = &text
		}(i)
	}
	wg.Wait()

	sort.Slice(varErrs, func(a, b int) bool { return varErrs[a].Variation < varErrs[b].Variation })
	return texts, varErrs
}

// buildInstruction renders the "Key: value" instruction consumed by the
// backend. Variation index is included so deterministic backends still
// produce distinct candidates.
func buildInstruction(profile *domain.VoiceProfile, params GenerateParams, variation int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", params.Platform)
	fmt.Fprintf(&b, "Context: %s\n", params.Context)
	fmt.Fprintf(&b, "ContentType: %s\n", params.ContentType)
	fmt.Fprintf(&b, "Variation: %d\n", variation)

	tone := params.ToneAdjustment
	if tone == "" {
		tone = profile.Core.PrimaryTone
	}
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	if dist := profile.Writing.ToneDistribution; len(dist) > 0 {
		fmt.Fprintf(&b, "ToneDistribution: %s\n", formatDistribution(dist))
	}
	if profile.Writing.SentenceRhythm != "" {
		fmt.Fprintf(&b, "SentenceRhythm: %s\n", profile.Writing.SentenceRhythm)
	}
	if profile.Writing.VocabularyLevel != "" {
		fmt.Fprintf(&b, "Vocabulary: %s\n", profile.Writing.VocabularyLevel)
	}
	if len(profile.Writing.FavoriteWords) > 0 {
		fmt.Fprintf(&b, "FavoriteWords: %s\n", strings.Join(profile.Writing.FavoriteWords, ", "))
	}
	if tmpl := profile.Writing.Templates; tmpl.Opening != "" {
		fmt.Fprintf(&b, "Structure: %s / %s / %s / %s\n", tmpl.Opening, tmpl.Body, tmpl.Closing, tmpl.CallToAction)
	}

	if t := params.Trend; t != nil {
		fmt.Fprintf(&b, "TrendTitle: %s\n", t.Title)
		if t.Summary != "" {
			fmt.Fprintf(&b, "TrendSummary: %s\n", t.Summary)
		}
		if len(t.KeyPoints) > 0 {
			fmt.Fprintf(&b, "TrendKeyPoints: %s\n", strings.Join(t.KeyPoints, "; "))
		}
	}
	return b.String()
}

// formatDistribution renders a tone distribution deterministically, strongest
// tone first.
func formatDistribution(dist map[string]float64) string {
	tones := make([]string, 0, len(dist))
	for t := range dist {
		tones = append(tones, t)
	}
	sort.Slice(tones, func(i, j int) bool {
		if dist[tones[i]] != dist[tones[j]] {
			return dist[tones[i]] > dist[tones[j]]
		}
		return tones[i] < tones[j]
	})
	parts := make([]string, len(tones))
	for i, t := range tones {
		parts[i] = fmt.Sprintf("%s=%.2f", t, dist[t])
	}
	return strings.Join(parts, ", ")
}

// selectHashtags draws tags from the profile's category mix (core categories
// first, then the trend's tags), dropping any tag already present in the
// generated text and capping at the profile's optimal count.
func selectHashtags(profile *domain.VoiceProfile, params GenerateParams, text string) []string {
	inText := map[string]struct{}{}
	for _, tag := range ingest.Hashtags(text) {
		inText[tag] = struct{}{}
	}

	var pool []string
	mix := profile.Strategy.HashtagCategoryMix
	categories := make([]string, 0, len(mix))
	for c := range mix {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	// "core" ahead of everything else, remaining categories alphabetical.
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i] == "core" && categories[j] != "core"
	})
	for _, c := range categories {
		pool = append(pool, mix[c]...)
	}
	if params.Trend != nil {
		pool = append(pool, params.Trend.Hashtags...)
	}

	limit := profile.Strategy.OptimalHashtagCount
	if limit <= 0 {
		limit = 3
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, limit)
	for _, tag := range pool {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		if _, embedded := inText[tag]; embedded {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == limit {
			break
		}
	}
	return out
}

// estimateEngagement is a bounded heuristic, not a measurement: profile
// confidence dominates, hashtag fit and a non-trivial body each add a little.
func estimateEngagement(profile *domain.VoiceProfile, text string, tags []string) float64 {
	score := 25 + profile.Confidence.Overall*0.5
	if len(tags) > 0 {
		score += 10
	}
	if n := len(strings.Fields(text)); n >= 10 && n <= 120 {
		score += 10
	}
	return clamp(score, 0, 100)
}

// suggestPostTime picks the next occurrence of the profile's best posting
// window, or now + 1 day when the profile has none.
func suggestPostTime(profile *domain.VoiceProfile, now time.Time) time.Time {
	windows := profile.Behavioral.OptimalWindows
	if len(windows) == 0 {
		return now.Add(24 * time.Hour)
	}
	w := windows[0]
	candidate := time.Date(now.Year(), now.Month(), now.Day(), w.StartHour, 0, 0, 0, time.UTC)
	daysAhead := (int(w.Weekday) - int(now.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// ListContent returns a page of the user's generated content, newest first.
func (s *GenerationService) ListContent(ctx context.Context, userID string, platform domain.Platform, page, pageSize int) ([]domain.GeneratedContent, int64, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "ListContent",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if platform != "" && !platform.Valid() {
		return nil, 0, ErrInvalidPlatform
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountContent(ctx, s.DB, userID, platform)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.GeneratedContent{}, 0, nil
	}
	items, err := repo.ListContentPage(ctx, s.DB, userID, platform, offset, pageSize)
	return items, total, err
}

// GetContent fetches one generated item scoped to its owner.
func (s *GenerationService) GetContent(ctx context.Context, userID, id string) (*domain.GeneratedContent, error) {
	c, err := repo.GetContent(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	return c, nil
}
