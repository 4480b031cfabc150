// Package services – ProfileService
//
// This file implements ProfileService, which owns voice-profile synthesis.
// A synthesis aggregates the user's stored posts (plus any processed, not yet
// applied feedback signal) into a new immutable profile version. Versions
// strictly increase per user×platform; a concurrent pass that loses the
// version race gets ErrProfileConflict and may retry against the new base.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// user/platform identifiers and the resulting version.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicemirror/go-voice-backend/internal/analysis"
	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/repo"
)

// ConfidenceWeights are the tunable contributions of each data-quality signal
// to the overall confidence score. They should sum to 100; Normalize rescales
// them when they do not.
type ConfidenceWeights struct {
	Sample       float64
	Range        float64
	Completeness float64
}

// DefaultConfidenceWeights splits confidence 50/30/20 across sample size,
// date-range coverage, and completeness.
var DefaultConfidenceWeights = ConfidenceWeights{Sample: 50, Range: 30, Completeness: 20}

// Normalize rescales the weights to sum to 100, falling back to the defaults
// when they are unusable.
func (w ConfidenceWeights) Normalize() ConfidenceWeights {
	sum := w.Sample + w.Range + w.Completeness
	if sum <= 0 || w.Sample < 0 || w.Range < 0 || w.Completeness < 0 {
		return DefaultConfidenceWeights
	}
	f := 100 / sum
	return ConfidenceWeights{Sample: w.Sample * f, Range: w.Range * f, Completeness: w.Completeness * f}
}

// Saturation points: at this much data the corresponding confidence component
// maxes out.
const (
	confidenceSampleSaturation   = 30.0 // posts
	confidenceRangeSaturation    = 90.0 // days
	confidenceCompleteSaturation = 20.0 // complete posts
)

// ProfileService synthesizes, versions, and serves voice profiles.
type ProfileService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Analyzer derives writing-style signals from caption text.
	Analyzer *analysis.Analyzer
	// Weights tune the confidence formula.
	Weights ConfidenceWeights
}

// NewProfileService constructs a ProfileService with default analysis
// settings and confidence weights.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		DB:       db,
		Analyzer: analysis.New(),
		Weights:  DefaultConfidenceWeights,
	}
}

// DefaultProfile returns the neutral "no voice DNA yet" profile for a user
// and platform. Every consumer of the fallback sees this exact shape:
// baseline tone and style, empty strategy, confidence 0.
func DefaultProfile(userID string, platform domain.Platform) domain.VoiceProfile {
	return domain.VoiceProfile{
		UserID:           userID,
		Platform:         platform,
		Version:          "0.0.0",
		InsufficientData: true,
		Core: domain.CoreIdentity{
			PrimaryTone:        "neutral",
			CommunicationStyle: "direct",
		},
		Writing: domain.WritingDNA{
			SentenceRhythm:   "balanced",
			VocabularyLevel:  "conversational",
			PunctuationStyle: "standard",
			Templates: domain.StructuralTemplates{
				Opening:      "{hook}",
				Body:         "{body}",
				Closing:      "{closing}",
				CallToAction: "{cta}",
			},
		},
		Visual: domain.VisualDNA{
			Mood:        "natural",
			Framing:     "centered",
			Perspective: "eye-level",
			Lighting:    "daylight",
		},
		Strategy: domain.StrategyDNA{
			OptimalHashtagCount: 3,
		},
		Templates: domain.GenerationTemplates{
			Captions: []domain.CaptionTemplate{{
				Name:      "plain",
				Pattern:   "{hook}\n\n{body}\n\n{cta}",
				Variables: []string{"hook", "body", "cta"},
				Example:   "Something new today.\n\nHere is why it matters.\n\nTell me what you think.",
			}},
		},
	}
}

// Get returns the live (latest) profile for userID on platform. With fallback
// true a missing profile is replaced by DefaultProfile instead of
// ErrProfileNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string, platform domain.Platform, fallback bool) (*domain.VoiceProfile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("platform", string(platform)),
		),
	)
	defer span.End()

	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}
	p, err := repo.GetLatestProfile(ctx, s.DB, userID, platform)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if fallback {
				dp := DefaultProfile(userID, platform)
				return &dp, nil
			}
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetVersion returns one historical profile version.
func (s *ProfileService) GetVersion(ctx context.Context, userID string, platform domain.Platform, version string) (*domain.VoiceProfile, error) {
	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}
	p, err := repo.GetProfileVersion(ctx, s.DB, userID, platform, version)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// Synthesize aggregates the user's posts into a new profile version and
// persists it. Processed feedback that has not yet been applied contributes
// edited texts and issue tags as extra signal. The posts that fed the pass
// are stamped with an analyzed timestamp.
//
// Returns ErrProfileConflict when a concurrent synthesis committed the same
// next version first.
func (s *ProfileService) Synthesize(ctx context.Context, userID string, platform domain.Platform) (*domain.VoiceProfile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Synthesize",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("platform", string(platform)),
		),
	)
	defer span.End()

	if !platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	posts, err := repo.ListPosts(ctx, s.DB, userID, platform)
	if err != nil {
		return nil, err
	}
	signal, err := repo.ListUnappliedFeedback(ctx, s.DB, userID, platform)
	if err != nil {
		return nil, err
	}

	base := ""
	revision := 0
	if prev, err := repo.GetLatestProfile(ctx, s.DB, userID, platform); err == nil {
		base = prev.Version
		revision = prev.Revision
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	profile := s.build(userID, platform, posts, signal)
	profile.Version = nextVersion(base)
	profile.Revision = revision + 1
	span.SetAttributes(attribute.String("profile.version", profile.Version))

	if err := repo.CreateProfileVersion(ctx, s.DB, &profile); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrProfileConflict
		}
		return nil, err
	}

	if len(posts) > 0 {
		ids := make([]string, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		if err := repo.MarkPostsAnalyzed(ctx, s.DB, ids, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

// nextVersion bumps the minor component of a semantic version, starting at
// "1.0.0" when there is no prior version.
func nextVersion(prev string) string {
	if prev == "" {
		return "1.0.0"
	}
	var major, minor, patch int
	if _, err := fmt.Sscanf(prev, "%d.%d.%d", &major, &minor, &patch); err != nil {
		return "1.0.0"
	}
	return fmt.Sprintf("%d.%d.0", major, minor+1)
}

// build derives the full profile body from posts and feedback signal. It is
// deterministic and order-independent: all aggregation goes through maps with
// sorted, tie-broken output.
func (s *ProfileService) build(userID string, platform domain.Platform, posts []domain.Post, signal []domain.Feedback) domain.VoiceProfile {
	captions := make([]string, 0, len(posts)+len(signal))
	for _, p := range posts {
		if p.Caption != "" {
			captions = append(captions, p.Caption)
		}
	}
	for _, fb := range signal {
		if fb.EditedText != "" {
			captions = append(captions, fb.EditedText)
		}
	}

	if len(posts) == 0 && len(captions) == 0 {
		return DefaultProfile(userID, platform)
	}

	quality, complete := dataQuality(posts)
	weights := s.Weights.Normalize()

	profile := DefaultProfile(userID, platform)
	profile.InsufficientData = len(posts) == 0

	textualDepth := s.buildWriting(&profile, captions)
	visualDepth := s.buildVisual(&profile, posts)
	correlationDepth := s.buildStrategy(&profile, posts)
	s.buildBehavioral(&profile, posts, signal)
	s.buildTemplates(&profile)

	profile.Confidence = domain.ConfidenceScores{
		Overall: clamp(
			weights.Sample*saturate(float64(quality.SampleSize), confidenceSampleSaturation)+
				weights.Range*saturate(float64(quality.DateRangeDays), confidenceRangeSaturation)+
				weights.Completeness*saturate(float64(complete), confidenceCompleteSaturation),
			0, 100),
		DataQuality: quality,
		AnalysisDepth: domain.AnalysisDepth{
			Textual:     textualDepth,
			Visual:      visualDepth,
			Correlation: correlationDepth,
		},
	}
	return profile
}

// dataQuality summarizes the post corpus and returns the number of complete
// posts (caption plus at least one media URL). Confidence scoring ramps on the
// count rather than the completeness ratio so that adding a post never lowers
// the score.
func dataQuality(posts []domain.Post) (domain.DataQuality, int) {
	q := domain.DataQuality{SampleSize: len(posts)}
	if len(posts) == 0 {
		return q, 0
	}
	var minT, maxT time.Time
	complete := 0
	for _, p := range posts {
		if !p.PostedAt.IsZero() {
			if minT.IsZero() || p.PostedAt.Before(minT) {
				minT = p.PostedAt
			}
			if p.PostedAt.After(maxT) {
				maxT = p.PostedAt
			}
		}
		if p.Caption != "" && len(p.MediaURLs) > 0 {
			complete++
		}
	}
	if !minT.IsZero() && len(posts) > 1 {
		q.DateRangeDays = int(maxT.Sub(minT).Hours() / 24)
	}
	q.Completeness = float64(complete) / float64(len(posts))
	return q, complete
}

// buildWriting fills the textual half of the profile and returns the textual
// analysis depth.
func (s *ProfileService) buildWriting(profile *domain.VoiceProfile, captions []string) float64 {
	if len(captions) == 0 {
		return 0
	}
	dist := s.Analyzer.ToneDistribution(captions)
	profile.Writing.ToneDistribution = dist
	profile.Writing.SentenceRhythm = s.Analyzer.SentenceRhythm(captions)
	profile.Writing.VocabularyLevel = s.Analyzer.VocabularyLevel(captions)
	profile.Writing.PunctuationStyle = s.Analyzer.PunctuationStyle(captions)
	profile.Writing.FavoriteWords = s.Analyzer.FavoriteWords(captions)
	profile.Writing.PhraseTemplates = s.Analyzer.PhraseTemplates(captions)

	profile.Core.PrimaryTone = analysis.PrimaryTone(dist)
	profile.Core.Catchphrases = s.Analyzer.Catchphrases(captions)
	profile.Core.PersonalityTraits = s.Analyzer.EmotionalRange(dist)
	profile.Writing.EmotionalRange = s.Analyzer.EmotionalRange(dist)
	profile.Core.ContentPillars = contentPillars(captions, profile.Writing.FavoriteWords)

	// Depth grows with corpus size and whether tone markers were found.
	depth := saturate(float64(len(captions)), 20) * 100
	if len(dist) == 0 {
		depth /= 2
	}
	return clamp(depth, 0, 100)
}

// contentPillars turns the strongest recurring words into weighted topics.
func contentPillars(captions []string, favorites []string) []domain.ContentPillar {
	if len(favorites) == 0 {
		return nil
	}
	if len(favorites) > 3 {
		favorites = favorites[:3]
	}
	pillars := make([]domain.ContentPillar, 0, len(favorites))
	for _, word := range favorites {
		hits := 0
		for _, c := range captions {
			if strings.Contains(strings.ToLower(c), word) {
				hits++
			}
		}
		pillars = append(pillars, domain.ContentPillar{
			Name:     word,
			Weight:   float64(hits) / float64(len(captions)),
			Keywords: []string{word},
		})
	}
	return pillars
}

// buildVisual fills the visual section from media attributes and returns the
// visual analysis depth. Only the media-type mix is real input here; richer
// visual analysis would come from an image pipeline this service does not
// have, so mood and composition stay at their neutral defaults.
func (s *ProfileService) buildVisual(profile *domain.VoiceProfile, posts []domain.Post) float64 {
	withMedia := 0
	mix := map[string]int{}
	for _, p := range posts {
		if len(p.MediaURLs) == 0 {
			continue
		}
		withMedia++
		mix[string(p.MediaType)]++
	}
	if withMedia == 0 {
		return 0
	}

	typeMix := make(map[string]float64, len(mix))
	maxShare := 0.0
	for k, n := range mix {
		share := float64(n) / float64(withMedia)
		typeMix[k] = share
		if share > maxShare {
			maxShare = share
		}
	}
	profile.Visual.ContentTypeMix = typeMix
	profile.Visual.ConsistencyScore = clamp(maxShare*100, 0, 100)
	profile.Visual.VarietyScore = clamp(float64(len(mix))/3*100, 0, 100)

	return clamp(50*float64(withMedia)/float64(len(posts)), 0, 100)
}

// buildStrategy correlates hashtags and media types with engagement and
// returns the correlation analysis depth.
func (s *ProfileService) buildStrategy(profile *domain.VoiceProfile, posts []domain.Post) float64 {
	if len(posts) == 0 {
		return 0
	}

	type tagStat struct {
		count      int
		engagement float64
	}
	tags := map[string]*tagStat{}
	totalTags := 0
	engaged := 0
	for _, p := range posts {
		e := engagementValue(p.Engagement)
		if e > 0 {
			engaged++
		}
		totalTags += len(p.Hashtags)
		for _, tag := range p.Hashtags {
			st := tags[tag]
			if st == nil {
				st = &tagStat{}
				tags[tag] = st
			}
			st.count++
			st.engagement += e
		}
	}

	if len(posts) > 0 {
		if avg := float64(totalTags) / float64(len(posts)); avg >= 1 {
			profile.Strategy.OptimalHashtagCount = int(clamp(avg+0.5, 1, 10))
		}
	}

	// Frequency tiers: tags used in more than one post are "core", the rest
	// "occasional".
	names := make([]string, 0, len(tags))
	for t := range tags {
		names = append(names, t)
	}
	sort.Slice(names, func(i, j int) bool {
		if tags[names[i]].count != tags[names[j]].count {
			return tags[names[i]].count > tags[names[j]].count
		}
		return names[i] < names[j]
	})
	if len(names) > 0 {
		mixNames := map[string][]string{}
		for _, t := range names {
			if tags[t].count > 1 {
				mixNames["core"] = append(mixNames["core"], t)
			} else {
				mixNames["occasional"] = append(mixNames["occasional"], t)
			}
		}
		profile.Strategy.HashtagCategoryMix = mixNames
	}

	// Effective patterns: the tag sets of the top-engagement posts.
	ranked := make([]domain.Post, len(posts))
	copy(ranked, posts)
	sort.Slice(ranked, func(i, j int) bool {
		ei, ej := engagementValue(ranked[i].Engagement), engagementValue(ranked[j].Engagement)
		if ei != ej {
			return ei > ej
		}
		return ranked[i].ID < ranked[j].ID
	})
	for _, p := range ranked {
		if len(profile.Strategy.EffectivePatterns) == 3 {
			break
		}
		if len(p.Hashtags) == 0 || engagementValue(p.Engagement) == 0 {
			continue
		}
		profile.Strategy.EffectivePatterns = append(profile.Strategy.EffectivePatterns, domain.HashtagPattern{
			Tags:               p.Hashtags,
			ExpectedEngagement: engagementValue(p.Engagement),
		})
	}

	// Winning combinations: average engagement per media type.
	byType := map[domain.MediaType][]float64{}
	for _, p := range posts {
		byType[p.MediaType] = append(byType[p.MediaType], engagementValue(p.Engagement))
	}
	types := make([]domain.MediaType, 0, len(byType))
	for mt := range byType {
		types = append(types, mt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, mt := range types {
		vals := byType[mt]
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		profile.Strategy.WinningCombinations = append(profile.Strategy.WinningCombinations, domain.ContentCombination{
			MediaType:     mt,
			Pillar:        "general",
			AvgEngagement: sum / float64(len(vals)),
		})
	}

	if engaged == 0 || len(tags) == 0 {
		return 0
	}
	return clamp(saturate(float64(engaged), 20)*100, 0, 100)
}

// buildBehavioral derives posting cadence and optimal windows, and records a
// style shift when feedback signal fed this pass.
func (s *ProfileService) buildBehavioral(profile *domain.VoiceProfile, posts []domain.Post, signal []domain.Feedback) {
	timed := make([]time.Time, 0, len(posts))
	for _, p := range posts {
		if !p.PostedAt.IsZero() {
			timed = append(timed, p.PostedAt)
		}
	}
	if len(timed) > 0 {
		sort.Slice(timed, func(i, j int) bool { return timed[i].Before(timed[j]) })
		spanDays := timed[len(timed)-1].Sub(timed[0]).Hours() / 24
		weeks := spanDays / 7
		if weeks < 1 {
			weeks = 1
		}
		profile.Behavioral.PostsPerWeek = float64(len(timed)) / weeks

		// Consistency: fraction of covered weeks that saw at least one post.
		weekSet := map[int]struct{}{}
		for _, ts := range timed {
			weekSet[int(ts.Sub(timed[0]).Hours()/(24*7))] = struct{}{}
		}
		totalWeeks := int(spanDays/7) + 1
		profile.Behavioral.ConsistencyScore = clamp(float64(len(weekSet))/float64(totalWeeks)*100, 0, 100)

		profile.Behavioral.OptimalWindows = optimalWindows(timed)
	}

	if len(signal) > 0 {
		now := time.Now().UTC()
		profile.Behavioral.Evolution = append(profile.Behavioral.Evolution, domain.StyleShift{
			Period: fmt.Sprintf("%d-Q%d", now.Year(), (int(now.Month())-1)/3+1),
			Note:   fmt.Sprintf("resynthesis incorporating %d feedback records", len(signal)),
		})
	}
}

// optimalWindows buckets posting times by weekday and two-hour slot and keeps
// the two busiest buckets.
func optimalWindows(timed []time.Time) []domain.PostingWindow {
	type bucket struct {
		weekday time.Weekday
		slot    int // StartHour / 2
	}
	counts := map[bucket]int{}
	for _, ts := range timed {
		counts[bucket{ts.UTC().Weekday(), ts.UTC().Hour() / 2}]++
	}
	buckets := make([]bucket, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if counts[buckets[i]] != counts[buckets[j]] {
			return counts[buckets[i]] > counts[buckets[j]]
		}
		if buckets[i].weekday != buckets[j].weekday {
			return buckets[i].weekday < buckets[j].weekday
		}
		return buckets[i].slot < buckets[j].slot
	})
	if len(buckets) > 2 {
		buckets = buckets[:2]
	}
	windows := make([]domain.PostingWindow, len(buckets))
	for i, b := range buckets {
		windows[i] = domain.PostingWindow{
			Weekday:   b.weekday,
			StartHour: b.slot * 2,
			EndHour:   b.slot*2 + 2,
		}
	}
	return windows
}

// buildTemplates folds the derived style back into reusable generation
// material.
func (s *ProfileService) buildTemplates(profile *domain.VoiceProfile) {
	sets := map[string][]string{}
	for category, tags := range profile.Strategy.HashtagCategoryMix {
		sets[category] = tags
	}
	if len(sets) > 0 {
		profile.Templates.HashtagSets = sets
	}
	if profile.Visual.Mood != "" {
		profile.Templates.VisualGuidelines = []string{
			"mood: " + profile.Visual.Mood,
			"lighting: " + profile.Visual.Lighting,
		}
	}
}

// engagementValue collapses the engagement counters into one comparable
// number. Comments weigh double; views contribute marginally.
func engagementValue(e domain.EngagementMetrics) float64 {
	v := float64(e.Likes) + 2*float64(e.Comments)
	if e.Shares != nil {
		v += 3 * float64(*e.Shares)
	}
	if e.Views != nil {
		v += 0.01 * float64(*e.Views)
	}
	return v
}

// saturate maps x to [0,1], reaching 1 at the saturation point.
func saturate(x, at float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= at {
		return 1
	}
	return x / at
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
