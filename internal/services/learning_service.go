// Package services – LearningService
//
// This file implements LearningService, the batch half of the feedback loop.
// A learning pass recomputes satisfaction metrics from scratch, scores and
// consumes unprocessed feedback exactly once, and triggers a profile
// resynthesis when enough consumed-but-unapplied signal has accumulated.
// "Signal collected" and "model updated" stay strictly separate: the pass
// never mutates generated content, and the profile only changes through the
// explicit resynthesis step.
package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/repo"
)

// DefaultResynthesisThreshold is how many processed-but-unapplied feedback
// records trigger a resynthesis.
const DefaultResynthesisThreshold = 5

// Impact scoring factors: rating supplies the sign, an edited version and an
// actual post each amplify the signal.
const (
	impactBase         = 1.0
	impactEditedFactor = 1.5
	impactPostedFactor = 1.25
)

// LearningService runs the idempotent learning pass.
type LearningService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Profiles performs resynthesis when the threshold is crossed.
	Profiles *ProfileService
	// ResynthesisThreshold overrides DefaultResynthesisThreshold when > 0.
	ResynthesisThreshold int
}

// Run executes one learning pass for userID on platform and returns the
// freshly recomputed metrics. The pass is idempotent: it only consumes
// feedback still marked unprocessed, so retries after partial failure and
// concurrent runs for different users are safe.
func (s *LearningService) Run(ctx context.Context, userID string, platform domain.Platform) (*domain.LearningMetrics, error) {
	tr := otel.Tracer("services/LearningService")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("platform", string(platform)),
		),
	)
	defer span.End()

	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	// Score and consume new signal. A record already consumed by a concurrent
	// pass is skipped, never double-counted.
	unprocessed, err := repo.ListUnprocessedFeedback(ctx, s.DB, userID, platform)
	if err != nil {
		return nil, err
	}
	for _, fb := range unprocessed {
		if err := repo.MarkFeedbackProcessed(ctx, s.DB, fb.ID, impactScore(fb)); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}
	span.SetAttributes(attribute.Int("consumed", len(unprocessed)))

	metrics, err := s.recompute(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if err := repo.UpsertMetrics(ctx, s.DB, metrics); err != nil {
		return nil, err
	}

	if err := s.maybeResynthesize(ctx, userID, platform); err != nil {
		return nil, err
	}
	return metrics, nil
}

// Get returns the last computed metrics, or ErrMetricsNotFound when no pass
// has ever run for the pair.
func (s *LearningService) Get(ctx context.Context, userID string, platform domain.Platform) (*domain.LearningMetrics, error) {
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}
	m, err := repo.GetMetrics(ctx, s.DB, userID, platform)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMetricsNotFound
		}
		return nil, err
	}
	return m, nil
}

// impactScore estimates how much one feedback record should influence the
// next resynthesis. Rating gives the sign; an edited text and a confirmed
// post each amplify the magnitude.
func impactScore(fb domain.Feedback) float64 {
	score := impactBase
	if fb.EditedText != "" {
		score *= impactEditedFactor
	}
	if fb.WasPosted != nil && *fb.WasPosted {
		score *= impactPostedFactor
	}
	if fb.Rating == domain.RatingThumbsDown {
		score = -score
	}
	return score
}

// recompute rebuilds the full metrics rollup from all stored feedback and
// content. Nothing is patched incrementally; two passes over the same data
// produce the same rollup.
func (s *LearningService) recompute(ctx context.Context, userID string, platform domain.Platform) (*domain.LearningMetrics, error) {
	all, err := repo.ListFeedback(ctx, s.DB, userID, platform)
	if err != nil {
		return nil, err
	}
	generated, err := repo.CountContent(ctx, s.DB, userID, platform)
	if err != nil {
		return nil, err
	}

	m := &domain.LearningMetrics{
		UserID:         userID,
		Platform:       platform,
		GeneratedCount: generated,
		ComputedAt:     time.Now().UTC(),
	}
	for _, fb := range all {
		switch fb.Rating {
		case domain.RatingThumbsUp:
			m.ThumbsUp++
		case domain.RatingThumbsDown:
			m.ThumbsDown++
		}
	}
	if rated := m.ThumbsUp + m.ThumbsDown; rated > 0 {
		m.SatisfactionRate = float64(m.ThumbsUp) / float64(rated)
	}
	m.WeeklyTrend = weeklyTrend(all)

	currentVersion := ""
	if p, err := repo.GetLatestProfile(ctx, s.DB, userID, platform); err == nil {
		currentVersion = p.Version
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	m.AspectDeltas = aspectDeltas(all, currentVersion)

	usage, err := s.usagePatterns(ctx, userID, platform, all, generated)
	if err != nil {
		return nil, err
	}
	m.Usage = usage
	return m, nil
}

// weeklyTrend buckets feedback by week and reports per-week satisfaction,
// oldest week first.
func weeklyTrend(all []domain.Feedback) []domain.TrendPoint {
	type bucket struct{ up, total int }
	weeks := map[time.Time]*bucket{}
	for _, fb := range all {
		ws := weekStart(fb.CreatedAt)
		b := weeks[ws]
		if b == nil {
			b = &bucket{}
			weeks[ws] = b
		}
		b.total++
		if fb.Rating == domain.RatingThumbsUp {
			b.up++
		}
	}
	starts := make([]time.Time, 0, len(weeks))
	for ws := range weeks {
		starts = append(starts, ws)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	out := make([]domain.TrendPoint, len(starts))
	for i, ws := range starts {
		b := weeks[ws]
		out[i] = domain.TrendPoint{
			WeekStart:        ws,
			SatisfactionRate: float64(b.up) / float64(b.total),
			Count:            b.total,
		}
	}
	return out
}

// weekStart truncates t to the preceding Monday midnight UTC.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	days := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

// aspectDeltas compares per-aspect (issue tag) satisfaction between feedback
// produced under the current profile version and feedback from earlier
// versions. Aspects seen on only one side report the other side as 0.
func aspectDeltas(all []domain.Feedback, currentVersion string) []domain.AspectDelta {
	if currentVersion == "" {
		return nil
	}
	type stat struct{ up, total int }
	before := map[string]*stat{}
	after := map[string]*stat{}
	record := func(m map[string]*stat, aspect string, up bool) {
		st := m[aspect]
		if st == nil {
			st = &stat{}
			m[aspect] = st
		}
		st.total++
		if up {
			st.up++
		}
	}
	for _, fb := range all {
		side := before
		if fb.Context.ProfileVersion == currentVersion {
			side = after
		}
		for _, aspect := range fb.Issues {
			record(side, aspect, fb.Rating == domain.RatingThumbsUp)
		}
	}
	aspects := map[string]struct{}{}
	for a := range before {
		aspects[a] = struct{}{}
	}
	for a := range after {
		aspects[a] = struct{}{}
	}
	names := make([]string, 0, len(aspects))
	for a := range aspects {
		names = append(names, a)
	}
	sort.Strings(names)

	rate := func(m map[string]*stat, aspect string) float64 {
		st := m[aspect]
		if st == nil || st.total == 0 {
			return 0
		}
		return float64(st.up) / float64(st.total)
	}
	out := make([]domain.AspectDelta, len(names))
	for i, a := range names {
		out[i] = domain.AspectDelta{Aspect: a, Before: rate(before, a), After: rate(after, a)}
	}
	return out
}

// usagePatterns summarizes how the generation feature is used: cadence, the
// dominant media type of the underlying post corpus, peak generation hours,
// and how many generations the user reported actually posting.
func (s *LearningService) usagePatterns(ctx context.Context, userID string, platform domain.Platform, all []domain.Feedback, generated int64) (domain.UsagePatterns, error) {
	u := domain.UsagePatterns{}

	count, maxTS, err := repo.ContentStats(ctx, s.DB, userID, platform)
	if err != nil {
		return u, err
	}
	if count > 0 && maxTS != nil {
		items, err := repo.ListContentPage(ctx, s.DB, userID, platform, 0, int(count))
		if err != nil {
			return u, err
		}
		minTS := items[len(items)-1].CreatedAt
		weeks := maxTS.Sub(minTS).Hours() / (24 * 7)
		if weeks < 1 {
			weeks = 1
		}
		u.GenerationsPerWeek = float64(count) / weeks
		u.PeakHours = peakHours(items)
	}

	posts, err := repo.ListPosts(ctx, s.DB, userID, platform)
	if err != nil {
		return u, err
	}
	if mt := dominantMediaType(posts); mt != "" {
		u.DominantContentType = mt
	}

	if generated > 0 {
		posted := 0
		for _, fb := range all {
			if fb.WasPosted != nil && *fb.WasPosted {
				posted++
			}
		}
		u.PostedFraction = float64(posted) / float64(generated)
	}
	return u, nil
}

// peakHours returns the up to three busiest generation hours (UTC).
func peakHours(items []domain.GeneratedContent) []int {
	counts := map[int]int{}
	for _, c := range items {
		counts[c.CreatedAt.UTC().Hour()]++
	}
	hours := make([]int, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}
	sort.Ints(hours)
	return hours
}

func dominantMediaType(posts []domain.Post) domain.MediaType {
	counts := map[domain.MediaType]int{}
	for _, p := range posts {
		counts[p.MediaType]++
	}
	var best domain.MediaType
	bestN := 0
	types := make([]domain.MediaType, 0, len(counts))
	for mt := range counts {
		types = append(types, mt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, mt := range types {
		if counts[mt] > bestN {
			best, bestN = mt, counts[mt]
		}
	}
	return best
}

// maybeResynthesize triggers a profile resynthesis once enough consumed
// signal has piled up, then marks that signal applied. Losing a concurrent
// version race is not an error: the winner's pass already folded the signal
// in.
func (s *LearningService) maybeResynthesize(ctx context.Context, userID string, platform domain.Platform) error {
	threshold := s.ResynthesisThreshold
	if threshold <= 0 {
		threshold = DefaultResynthesisThreshold
	}

	pending, err := repo.ListUnappliedFeedback(ctx, s.DB, userID, platform)
	if err != nil {
		return err
	}
	if len(pending) < threshold {
		return nil
	}

	if _, err := s.Profiles.Synthesize(ctx, userID, platform); err != nil {
		if errors.Is(err, ErrProfileConflict) {
			log.Warn().
				Str("user_id", userID).
				Str("platform", string(platform)).
				Msg("resynthesis lost version race, skipping apply")
			return nil
		}
		return err
	}

	ids := make([]string, len(pending))
	for i, fb := range pending {
		ids[i] = fb.ID
	}
	return repo.MarkFeedbackApplied(ctx, s.DB, ids)
}
