package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/ingest"
	"github.com/voicemirror/go-voice-backend/internal/textgen"
)

// flakyBackend fails a fixed set of variations, keyed by the Variation line.
type flakyBackend struct {
	fail map[string]error
}

func (f *flakyBackend) Name() string { return "flaky" }

func (f *flakyBackend) Generate(_ context.Context, instruction string) (string, error) {
	for line, err := range f.fail {
		if strings.Contains(instruction, line) {
			return "", err
		}
	}
	return "generated body text for the request", nil
}

func newGenService(t *testing.T) (*GenerationService, *ProfileService) {
	t.Helper()
	db := newTestDB(t)
	profiles := NewProfileService(db)
	return &GenerationService{
		DB:       db,
		Backend:  textgen.Template{},
		Profiles: profiles,
	}, profiles
}

func TestGenerate_ExactVariationCount(t *testing.T) {
	svc, profiles := newGenService(t)
	ctx := context.Background()
	seedPosts(t, svc.DB, "u1", domain.PlatformInstagram, 8, 20)
	if _, err := profiles.Synthesize(ctx, "u1", domain.PlatformInstagram); err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	items, varErrs, err := svc.Generate(ctx, "u1", GenerateParams{
		Platform:       domain.PlatformInstagram,
		Context:        "product launch",
		ContentType:    ContentTypeFull,
		VariationCount: 3,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(varErrs) != 0 {
		t.Fatalf("unexpected variation errors: %+v", varErrs)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items; want 3", len(items))
	}
	for _, c := range items {
		if c.Text == "" {
			t.Fatal("empty generated text")
		}
		if c.CharCount != utf8.RuneCountInString(c.Text) {
			t.Fatalf("char count %d != rune count %d", c.CharCount, utf8.RuneCountInString(c.Text))
		}
		if c.EngagementScore < 0 || c.EngagementScore > 100 {
			t.Fatalf("engagement score out of range: %f", c.EngagementScore)
		}
		if c.Provider != "template" {
			t.Fatalf("provider = %s", c.Provider)
		}
		if c.ProfileVersion != "1.0.0" {
			t.Fatalf("profile version = %s", c.ProfileVersion)
		}
		inText := map[string]struct{}{}
		for _, tag := range ingest.Hashtags(c.Text) {
			inText[tag] = struct{}{}
		}
		for _, tag := range c.Hashtags {
			if _, dup := inText[tag]; dup {
				t.Fatalf("hashtag %s duplicated in text", tag)
			}
		}
	}

	// Persisted.
	stored, total, err := svc.ListContent(ctx, "u1", domain.PlatformInstagram, 1, 10)
	if err != nil || total != 3 || len(stored) != 3 {
		t.Fatalf("list after generate: %d/%d, %v", len(stored), total, err)
	}
}

func TestGenerate_DefaultProfileFallback(t *testing.T) {
	svc, _ := newGenService(t)
	ctx := context.Background()

	// No profile exists. Strict mode refuses, fallback succeeds.
	_, _, err := svc.Generate(ctx, "u1", GenerateParams{
		Platform:       domain.PlatformTwitter,
		Context:        "weekly recap",
		ContentType:    ContentTypeCaption,
		VariationCount: 1,
		Strict:         true,
	})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("strict mode: expected ErrProfileNotFound, got %v", err)
	}

	items, _, err := svc.Generate(ctx, "u1", GenerateParams{
		Platform:       domain.PlatformTwitter,
		Context:        "weekly recap",
		ContentType:    ContentTypeCaption,
		VariationCount: 2,
	})
	if err != nil {
		t.Fatalf("fallback generate: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items; want 2", len(items))
	}
	for _, c := range items {
		if c.Text == "" {
			t.Fatal("default profile must still yield text")
		}
		if c.ProfileVersion != "0.0.0" {
			t.Fatalf("profile version = %s; want the default marker", c.ProfileVersion)
		}
	}
}

func TestGenerate_EmptyContentTypeDefaultsToCaption(t *testing.T) {
	svc, _ := newGenService(t)

	items, varErrs, err := svc.Generate(context.Background(), "u1", GenerateParams{
		Platform:       domain.PlatformInstagram,
		Context:        "spring collection",
		VariationCount: 1,
	})
	if err != nil {
		t.Fatalf("generate without content type: %v", err)
	}
	if len(varErrs) != 0 || len(items) != 1 {
		t.Fatalf("got %d items, %d errors; want 1/0", len(items), len(varErrs))
	}
	if items[0].Text == "" {
		t.Fatal("caption default must produce body text")
	}
	if items[0].Provider != "template" {
		t.Fatalf("provider = %s; want the text backend", items[0].Provider)
	}
}

// fixedBackend returns the same body for every variation.
type fixedBackend struct{ body string }

func (f fixedBackend) Name() string { return "fixed" }

func (f fixedBackend) Generate(context.Context, string) (string, error) {
	return f.body, nil
}

func TestGenerate_CharCountCountsRunes(t *testing.T) {
	svc, _ := newGenService(t)
	body := "Café vibes ☕ grand réouverture"
	svc.Backend = fixedBackend{body: body}

	items, _, err := svc.Generate(context.Background(), "u1", GenerateParams{
		Platform:       domain.PlatformInstagram,
		Context:        "reopening",
		ContentType:    ContentTypeCaption,
		VariationCount: 1,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := utf8.RuneCountInString(body)
	if items[0].CharCount != want {
		t.Fatalf("char count = %d; want %d runes (text is %d bytes)", items[0].CharCount, want, len(body))
	}
}

func TestGenerate_Validation(t *testing.T) {
	svc, _ := newGenService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params GenerateParams
		want   error
	}{
		{"bad platform", GenerateParams{Platform: "threads", Context: "x", ContentType: ContentTypeCaption, VariationCount: 1}, ErrInvalidPlatform},
		{"empty context", GenerateParams{Platform: domain.PlatformInstagram, Context: "   ", ContentType: ContentTypeCaption, VariationCount: 1}, ErrEmptyContext},
		{"bad content type", GenerateParams{Platform: domain.PlatformInstagram, Context: "x", ContentType: "poem", VariationCount: 1}, ErrInvalidContentType},
		{"zero variations", GenerateParams{Platform: domain.PlatformInstagram, Context: "x", ContentType: ContentTypeCaption, VariationCount: 0}, ErrInvalidVariationCount},
		{"too many variations", GenerateParams{Platform: domain.PlatformInstagram, Context: "x", ContentType: ContentTypeCaption, VariationCount: 99}, ErrInvalidVariationCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Generate(ctx, "u1", tc.params); !errors.Is(err, tc.want) {
				t.Fatalf("got %v; want %v", err, tc.want)
			}
		})
	}
}

func TestGenerate_PartialBackendFailure(t *testing.T) {
	svc, _ := newGenService(t)
	svc.Backend = &flakyBackend{fail: map[string]error{
		"Variation: 2": textgen.Transient(fmt.Errorf("quota exceeded")),
	}}
	ctx := context.Background()

	items, varErrs, err := svc.Generate(ctx, "u1", GenerateParams{
		Platform:       domain.PlatformInstagram,
		Context:        "launch",
		ContentType:    ContentTypeFull,
		VariationCount: 3,
	})
	if err != nil {
		t.Fatalf("partial failure must be a degraded success, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items; want 2", len(items))
	}
	if len(varErrs) != 1 || varErrs[0].Variation != 2 || !varErrs[0].Transient {
		t.Fatalf("variation errors = %+v", varErrs)
	}
}

func TestGenerate_TotalBackendFailure(t *testing.T) {
	svc, _ := newGenService(t)
	svc.Backend = &flakyBackend{fail: map[string]error{
		"Variation:": textgen.Transient(fmt.Errorf("backend down")),
	}}

	_, varErrs, err := svc.Generate(context.Background(), "u1", GenerateParams{
		Platform:       domain.PlatformInstagram,
		Context:        "launch",
		ContentType:    ContentTypeCaption,
		VariationCount: 2,
	})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if len(varErrs) != 2 {
		t.Fatalf("expected every variation reported, got %+v", varErrs)
	}
}

func TestGenerate_HashtagsOnly(t *testing.T) {
	svc, profiles := newGenService(t)
	ctx := context.Background()
	seedPosts(t, svc.DB, "u1", domain.PlatformInstagram, 6, 12)
	if _, err := profiles.Synthesize(ctx, "u1", domain.PlatformInstagram); err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	items, _, err := svc.Generate(ctx, "u1", GenerateParams{
		Platform:       domain.PlatformInstagram,
		Context:        "giveaway",
		ContentType:    ContentTypeHashtags,
		VariationCount: 1,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	c := items[0]
	if c.Text != "" || c.CharCount != 0 {
		t.Fatalf("hashtag-only content must have empty body, got %q", c.Text)
	}
	if len(c.Hashtags) == 0 {
		t.Fatal("expected hashtags drawn from the strategy mix")
	}
	if c.Provider != "strategy" {
		t.Fatalf("provider = %s; want strategy", c.Provider)
	}
}

func TestSuggestPostTime(t *testing.T) {
	now := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC) // a Wednesday

	p := DefaultProfile("u1", domain.PlatformInstagram)
	if got := suggestPostTime(&p, now); !got.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("no windows: got %v; want now+24h", got)
	}

	p.Behavioral.OptimalWindows = []domain.PostingWindow{{Weekday: time.Friday, StartHour: 18, EndHour: 20}}
	got := suggestPostTime(&p, now)
	want := time.Date(2026, 8, 28, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v; want next Friday 18:00", got)
	}

	// Window earlier today rolls over a full week.
	p.Behavioral.OptimalWindows = []domain.PostingWindow{{Weekday: time.Wednesday, StartHour: 9, EndHour: 11}}
	got = suggestPostTime(&p, now)
	want = time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v; want next Wednesday 09:00", got)
	}
}

func TestSelectHashtags_TrendAndLimit(t *testing.T) {
	p := DefaultProfile("u1", domain.PlatformInstagram)
	p.Strategy.OptimalHashtagCount = 2
	p.Strategy.HashtagCategoryMix = map[string][]string{
		"core":       {"#growth", "#launch"},
		"occasional": {"#misc"},
	}
	params := GenerateParams{
		ContentType: ContentTypeFull,
		Trend:       &TrendContext{Hashtags: []string{"#trending"}},
	}

	// "#growth" already appears in the text, so selection skips it.
	tags := selectHashtags(&p, params, "All about #Growth today")
	if len(tags) != 2 || tags[0] != "#launch" || tags[1] != "#misc" {
		t.Fatalf("tags = %v; want [#launch #misc]", tags)
	}
}
