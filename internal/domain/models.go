// Package domain defines the persistence models for posts, voice profiles,
// generated content, feedback, and learning metrics. These types are mapped
// with GORM and form the core data layer of the voice backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Platform identifies a supported social network. "threads" is deliberately
// absent: it appears only in display-layer concerns upstream and is not a
// valid synthesis platform.
type Platform string

// Supported platforms.
const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
)

// Platforms lists every valid platform in stable order.
var Platforms = []Platform{PlatformInstagram, PlatformTwitter, PlatformLinkedIn}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformTwitter, PlatformLinkedIn:
		return true
	}
	return false
}

// MediaType classifies the media attached to a post. It is derived
// deterministically from the raw media fields: carousel children present →
// carousel, else video fields present → video, else image.
type MediaType string

// Media types.
const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaCarousel MediaType = "carousel"
)

// EngagementMetrics holds per-post engagement counters. Views and Shares are
// optional because not every platform reports them.
type EngagementMetrics struct {
	Likes    int  `json:"likes"`
	Comments int  `json:"comments"`
	Views    *int `json:"views,omitempty"`
	Shares   *int `json:"shares,omitempty"`
}

// Post is a normalized social-media post owned by a user on one platform.
// (UserID, Platform, ExternalID) is unique; re-ingesting the same raw post is
// a no-op. Hashtags are lower-cased and deduplicated preserving first-seen
// order.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID / Platform / ExternalID: natural key of the source post.
//   - URL: canonical permalink on the platform.
//   - MediaURLs / MediaType: extracted media, see the ingest package.
//   - Caption / Hashtags: text body and derived tag set.
//   - Engagement: like/comment/view/share counters at scrape time.
//   - PostedAt: creation time on the platform.
//   - AnalyzedAt: set when the post last contributed to a synthesis.
type Post struct {
	ID         string            `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string            `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_posts;uniqueIndex:ux_post_user_platform_ext"`
	Platform   Platform          `json:"platform"    gorm:"type:varchar(16);not null;uniqueIndex:ux_post_user_platform_ext;check:platform IN ('instagram','twitter','linkedin')"`
	ExternalID string            `json:"external_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_post_user_platform_ext"`
	URL        string            `json:"url"         gorm:"type:varchar(512)"`
	MediaURLs  []string          `json:"media_urls"  gorm:"serializer:json"`
	MediaType  MediaType         `json:"media_type"  gorm:"type:varchar(16);not null;default:'image'"`
	Caption    string            `json:"caption"     gorm:"type:text"`
	Hashtags   []string          `json:"hashtags"    gorm:"serializer:json"`
	Engagement EngagementMetrics `json:"engagement"  gorm:"serializer:json"`
	PostedAt   time.Time         `json:"posted_at"   gorm:"index"`
	AnalyzedAt *time.Time        `json:"analyzed_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	DeletedAt  gorm.DeletedAt    `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

//
// Voice profile sub-documents. Stored as JSON columns: they are read and
// written as a unit and never queried field-by-field.
//

// ContentPillar is one weighted topic a user keeps returning to.
type ContentPillar struct {
	Name     string   `json:"name"`
	Weight   float64  `json:"weight"` // fraction of posts, [0,1]
	Keywords []string `json:"keywords"`
}

// CoreIdentity captures who the account "sounds like".
type CoreIdentity struct {
	PrimaryTone        string          `json:"primary_tone"`
	PersonalityTraits  []string        `json:"personality_traits"`
	CommunicationStyle string          `json:"communication_style"`
	ContentPillars     []ContentPillar `json:"content_pillars"`
	Catchphrases       []string        `json:"catchphrases"`
	WritingQuirks      []string        `json:"writing_quirks"`
}

// StructuralTemplates describe the typical shape of a caption.
type StructuralTemplates struct {
	Opening      string `json:"opening"`
	Body         string `json:"body"`
	Closing      string `json:"closing"`
	CallToAction string `json:"call_to_action"`
}

// WritingDNA is the textual half of the profile.
type WritingDNA struct {
	SentenceRhythm   string              `json:"sentence_rhythm"`
	VocabularyLevel  string              `json:"vocabulary_level"`
	EmotionalRange   []string            `json:"emotional_range"`
	PunctuationStyle string              `json:"punctuation_style"`
	Templates        StructuralTemplates `json:"templates"`
	FavoriteWords    []string            `json:"favorite_words"`
	PhraseTemplates  []string            `json:"phrase_templates"`
	ToneDistribution map[string]float64  `json:"tone_distribution"` // tone → weight, sums to 1 when non-empty
}

// VisualDNA is the visual half of the profile. When no visual analysis is
// available all fields hold neutral placeholders and the visual analysis
// depth is zero.
type VisualDNA struct {
	ColorPalette     []string           `json:"color_palette"`
	Mood             string             `json:"mood"`
	ConsistencyScore float64            `json:"consistency_score"` // [0,100]
	Framing          string             `json:"framing"`
	Perspective      string             `json:"perspective"`
	Lighting         string             `json:"lighting"`
	ContentTypeMix   map[string]float64 `json:"content_type_mix"` // media type → fraction
	VarietyScore     float64            `json:"variety_score"`    // [0,100]
	NarrativeStyle   []string           `json:"narrative_style"`
}

// HashtagPattern records a tag combination that historically performed well.
type HashtagPattern struct {
	Tags               []string `json:"tags"`
	ExpectedEngagement float64  `json:"expected_engagement"`
}

// ContentCombination records a (media type, pillar) pairing and its average
// engagement.
type ContentCombination struct {
	MediaType     MediaType `json:"media_type"`
	Pillar        string    `json:"pillar"`
	AvgEngagement float64   `json:"avg_engagement"`
}

// StrategyDNA is the content-strategy section of the profile.
type StrategyDNA struct {
	OptimalHashtagCount int                  `json:"optimal_hashtag_count"`
	HashtagCategoryMix  map[string][]string  `json:"hashtag_category_mix"` // category → tags
	EffectivePatterns   []HashtagPattern     `json:"effective_patterns"`
	WinningCombinations []ContentCombination `json:"winning_combinations"`
	EngagementTriggers  []string             `json:"engagement_triggers"`
}

// PostingWindow is an hour range on one weekday during which the account
// historically engages best. EndHour is exclusive.
type PostingWindow struct {
	Weekday   time.Weekday `json:"weekday"`
	StartHour int          `json:"start_hour"`
	EndHour   int          `json:"end_hour"`
}

// StyleShift is one coarse entry in the profile's evolution history.
type StyleShift struct {
	Period string `json:"period"` // e.g. "2025-Q3"
	Note   string `json:"note"`
}

// BehavioralDNA is the posting-behavior section of the profile.
type BehavioralDNA struct {
	PostsPerWeek     float64         `json:"posts_per_week"`
	ConsistencyScore float64         `json:"consistency_score"` // [0,100]
	OptimalWindows   []PostingWindow `json:"optimal_windows"`
	Evolution        []StyleShift    `json:"evolution"`
}

// CaptionTemplate is a reusable generation template with named variables.
type CaptionTemplate struct {
	Name      string   `json:"name"`
	Pattern   string   `json:"pattern"` // e.g. "{hook}\n\n{body}\n\n{cta}"
	Variables []string `json:"variables"`
	Example   string   `json:"example"`
}

// GenerationTemplates bundles reusable generation material derived from a
// profile.
type GenerationTemplates struct {
	Captions         []CaptionTemplate   `json:"captions"`
	HashtagSets      map[string][]string `json:"hashtag_sets"` // use case → tags
	VisualGuidelines []string            `json:"visual_guidelines"`
}

// DataQuality describes how much raw signal backed a synthesis.
type DataQuality struct {
	SampleSize    int     `json:"sample_size"`
	DateRangeDays int     `json:"date_range_days"`
	Completeness  float64 `json:"completeness"` // fraction of posts with caption + media, [0,1]
}

// AnalysisDepth describes how much of each derivation had real, non-default
// input. All fields are in [0,100].
type AnalysisDepth struct {
	Textual     float64 `json:"textual"`
	Visual      float64 `json:"visual"`
	Correlation float64 `json:"correlation"`
}

// ConfidenceScores bound the reliability of a profile. Overall is clamped to
// [0,100] and monotonic in sample size and date-range coverage.
type ConfidenceScores struct {
	Overall       float64       `json:"overall"`
	DataQuality   DataQuality   `json:"data_quality"`
	AnalysisDepth AnalysisDepth `json:"analysis_depth"`
}

// VoiceProfile is one immutable, versioned synthesis of a user's voice on a
// platform. The live profile is the row with the greatest version; prior
// versions are retained for feedback provenance and rollback, never deleted.
//
// (UserID, Platform, Version) is unique, so two concurrent synthesis passes
// against the same base version cannot both commit.
type VoiceProfile struct {
	ID               string              `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID           string              `json:"user_id"  gorm:"type:varchar(64);not null;index:idx_user_profiles;uniqueIndex:ux_profile_user_platform_version"`
	Platform         Platform            `json:"platform" gorm:"type:varchar(16);not null;uniqueIndex:ux_profile_user_platform_version"`
	Version          string              `json:"version"  gorm:"type:varchar(32);not null;uniqueIndex:ux_profile_user_platform_version"`
	// Revision is the monotone synthesis counter behind Version. The live
	// profile is the row with the greatest revision; version strings are not
	// sortable as text ("1.10.0" < "1.9.0" lexicographically).
	Revision         int                 `json:"-" gorm:"not null;default:0"`
	InsufficientData bool                `json:"insufficient_data"`
	Core             CoreIdentity        `json:"core_identity"        gorm:"serializer:json"`
	Writing          WritingDNA          `json:"writing_dna"          gorm:"serializer:json"`
	Visual           VisualDNA           `json:"visual_dna"           gorm:"serializer:json"`
	Strategy         StrategyDNA         `json:"strategy_dna"         gorm:"serializer:json"`
	Behavioral       BehavioralDNA       `json:"behavioral_dna"       gorm:"serializer:json"`
	Templates        GenerationTemplates `json:"generation_templates" gorm:"serializer:json"`
	Confidence       ConfidenceScores    `json:"confidence_scores"    gorm:"serializer:json"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TableName returns the database table name for VoiceProfile.
func (VoiceProfile) TableName() string { return "voice_profiles" }

// GeneratedContent is one content variation produced by the generation
// engine. Rows are immutable once created; ratings live in Feedback.
type GeneratedContent struct {
	ID                string         `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID            string         `json:"user_id"  gorm:"type:varchar(64);not null;index:idx_user_content"`
	Platform          Platform       `json:"platform" gorm:"type:varchar(16);not null"`
	Prompt            string         `json:"prompt"   gorm:"type:text;not null"`
	Text              string         `json:"text"     gorm:"type:text;not null"`
	Hashtags          []string       `json:"hashtags" gorm:"serializer:json"`
	EngagementScore   float64        `json:"engagement_score"` // bounded estimate, [0,100]
	SuggestedPostTime time.Time      `json:"suggested_post_time"`
	CharCount         int            `json:"char_count"`
	Provider          string         `json:"provider"        gorm:"type:varchar(32)"`
	ProfileVersion    string         `json:"profile_version" gorm:"type:varchar(32)"`
	Published         bool           `json:"published"`
	CreatedAt         time.Time      `json:"created_at" gorm:"index"`
	DeletedAt         gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for GeneratedContent.
func (GeneratedContent) TableName() string { return "generated_content" }

// Rating is a thumbs signal on generated content.
type Rating string

// Ratings.
const (
	RatingThumbsUp   Rating = "thumbs_up"
	RatingThumbsDown Rating = "thumbs_down"
)

// Valid reports whether r is a known rating.
func (r Rating) Valid() bool { return r == RatingThumbsUp || r == RatingThumbsDown }

// UsedContent is what the user actually kept from a generation, possibly
// edited.
type UsedContent struct {
	Caption     string   `json:"caption"`
	Hashtags    []string `json:"hashtags"`
	VisualNotes string   `json:"visual_notes,omitempty"`
}

// GenerationContext snapshots the conditions a piece of content was produced
// under, for provenance.
type GenerationContext struct {
	ProfileVersion string  `json:"profile_version"`
	Prompt         string  `json:"prompt"`
	Confidence     float64 `json:"confidence"`
}

// Feedback is one rating event on a GeneratedContent row. It is created once
// by the feedback endpoint and mutated exactly once by the learning pass
// (Processed → true, ImpactScore computed; AppliedToProfile set when the
// record is incorporated into a resynthesis).
type Feedback struct {
	ID         string            `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID     string            `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_feedback"`
	Platform   Platform          `json:"platform"   gorm:"type:varchar(16);not null"`
	ContentID  string            `json:"content_id" gorm:"type:char(36);not null;index"`
	Used       UsedContent       `json:"used_content" gorm:"serializer:json"`
	Rating     Rating            `json:"rating"     gorm:"type:varchar(16);not null;check:rating IN ('thumbs_up','thumbs_down')"`
	Issues     []string          `json:"issues,omitempty"      gorm:"serializer:json"`
	EditedText string            `json:"edited_text,omitempty" gorm:"type:text"`
	WasPosted  *bool             `json:"was_posted,omitempty"`
	Context    GenerationContext `json:"generation_context" gorm:"serializer:json"`

	// Learning-pipeline bookkeeping. Flattened into columns so the learning
	// pass can select unprocessed rows.
	Processed        bool    `json:"processed"          gorm:"not null;default:false;index"`
	AppliedToProfile bool    `json:"applied_to_profile" gorm:"not null;default:false"`
	ImpactScore      float64 `json:"impact_score"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Content is the rated generation. Feedback is cascade-deleted if the
	// underlying content row is removed.
	Content GeneratedContent `json:"-" gorm:"foreignKey:ContentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// TrendPoint is one week of satisfaction signal.
type TrendPoint struct {
	WeekStart        time.Time `json:"week_start"`
	SatisfactionRate float64   `json:"satisfaction_rate"` // [0,1]
	Count            int       `json:"count"`
}

// AspectDelta is a before/after satisfaction comparison for one style aspect
// (issue tag) across profile versions.
type AspectDelta struct {
	Aspect string  `json:"aspect"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// UsagePatterns summarizes how the generation feature is being used.
type UsagePatterns struct {
	GenerationsPerWeek  float64   `json:"generations_per_week"`
	DominantContentType MediaType `json:"dominant_content_type"`
	PeakHours           []int     `json:"peak_hours"`
	PostedFraction      float64   `json:"posted_fraction"` // [0,1]
}

// LearningMetrics is the per user×platform rollup. Every learning pass
// recomputes it from scratch rather than patching it incrementally. One live
// row per pair.
type LearningMetrics struct {
	ID               string        `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID           string        `json:"user_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_metrics_user_platform"`
	Platform         Platform      `json:"platform" gorm:"type:varchar(16);not null;uniqueIndex:ux_metrics_user_platform"`
	GeneratedCount   int64         `json:"generated_count"`
	ThumbsUp         int64         `json:"thumbs_up"`
	ThumbsDown       int64         `json:"thumbs_down"`
	SatisfactionRate float64       `json:"satisfaction_rate"` // [0,1]
	WeeklyTrend      []TrendPoint  `json:"weekly_trend"   gorm:"serializer:json"`
	AspectDeltas     []AspectDelta `json:"aspect_deltas"  gorm:"serializer:json"`
	Usage            UsagePatterns `json:"usage_patterns" gorm:"serializer:json"`
	ComputedAt       time.Time     `json:"computed_at"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// TableName returns the database table name for LearningMetrics.
func (LearningMetrics) TableName() string { return "learning_metrics" }
