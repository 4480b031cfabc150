// Package ingest normalizes raw scraped post records into domain.Post rows.
// Extraction is a pure function: it never touches storage and never fails on
// missing optional fields, so a malformed record can at worst produce an
// incomplete Post that the caller chooses to skip.
package ingest

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/voicemirror/go-voice-backend/internal/domain"
)

// RawMediaVersion is one rendition of a media asset as reported by the
// scraping collaborator.
type RawMediaVersion struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// RawCarouselChild is one slide of a carousel post.
type RawCarouselChild struct {
	ImageCandidates []RawMediaVersion `json:"image_candidates,omitempty"`
	VideoVersions   []RawMediaVersion `json:"video_versions,omitempty"`
}

// RawPost is the wire shape returned by the scraping collaborator. Every
// field except ExternalID is optional.
type RawPost struct {
	ExternalID      string             `json:"external_id"`
	URL             string             `json:"url,omitempty"`
	Caption         string             `json:"caption,omitempty"`
	VideoVersions   []RawMediaVersion  `json:"video_versions,omitempty"`
	ImageCandidates []RawMediaVersion  `json:"image_candidates,omitempty"`
	CarouselMedia   []RawCarouselChild `json:"carousel_media,omitempty"`
	Likes           int                `json:"likes,omitempty"`
	Comments        int                `json:"comments,omitempty"`
	Views           *int               `json:"views,omitempty"`
	Shares          *int               `json:"shares,omitempty"`
	TakenAt         int64              `json:"taken_at,omitempty"` // unix seconds
}

var hashtagRe = regexp.MustCompile(`#\w+`)

// Hashtags extracts hashtag tokens from caption text, lower-cased and
// deduplicated preserving first-seen order.
func Hashtags(caption string) []string {
	matches := hashtagRe.FindAllString(caption, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// mediaType derives the post's media class. Carousel children win over video
// renditions, which win over plain images.
func mediaType(raw RawPost) domain.MediaType {
	switch {
	case len(raw.CarouselMedia) > 0:
		return domain.MediaCarousel
	case len(raw.VideoVersions) > 0:
		return domain.MediaVideo
	default:
		return domain.MediaImage
	}
}

// mediaURLs picks the canonical media URLs: the first video rendition, else
// the first image candidate, else one URL per carousel child.
func mediaURLs(raw RawPost) []string {
	if len(raw.VideoVersions) > 0 && raw.VideoVersions[0].URL != "" {
		return []string{raw.VideoVersions[0].URL}
	}
	if len(raw.ImageCandidates) > 0 && raw.ImageCandidates[0].URL != "" {
		return []string{raw.ImageCandidates[0].URL}
	}
	var urls []string
	for _, child := range raw.CarouselMedia {
		if len(child.ImageCandidates) > 0 && child.ImageCandidates[0].URL != "" {
			urls = append(urls, child.ImageCandidates[0].URL)
		}
	}
	return urls
}

// Extract converts one raw scraped record into a normalized Post for the
// given owner. It is idempotent: extracting the same record twice yields an
// identical Post. The caller persists the result.
func Extract(userID string, platform domain.Platform, raw RawPost) domain.Post {
	postedAt := time.Time{}
	if raw.TakenAt > 0 {
		postedAt = time.Unix(raw.TakenAt, 0).UTC()
	}
	// Scrapers deliver captions in mixed Unicode forms. NFC keeps analysis
	// and dedup stable across composed and decomposed input.
	caption := norm.NFC.String(raw.Caption)
	return domain.Post{
		UserID:     userID,
		Platform:   platform,
		ExternalID: raw.ExternalID,
		URL:        raw.URL,
		MediaURLs:  mediaURLs(raw),
		MediaType:  mediaType(raw),
		Caption:    caption,
		Hashtags:   Hashtags(caption),
		Engagement: domain.EngagementMetrics{
			Likes:    raw.Likes,
			Comments: raw.Comments,
			Views:    raw.Views,
			Shares:   raw.Shares,
		},
		PostedAt: postedAt,
	}
}
