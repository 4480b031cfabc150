package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/services"
)

func TestSynthesizeProfile_Created(t *testing.T) {
	gin.SetMode(gin.TestMode)

	prof := stubProfileSvc{synthesizeFn: func(ctx context.Context, uid string, platform domain.Platform) (*domain.VoiceProfile, error) {
		if uid != "u-9" || platform != domain.PlatformLinkedIn {
			t.Fatalf("service args mismatch: %s %s", uid, platform)
		}
		return &domain.VoiceProfile{UserID: uid, Platform: platform, Version: "1.2.0"}, nil
	}}
	h := newStubHandlers(stubIngestSvc{}, prof, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.POST("/profiles/:platform/synthesize", h.SynthesizeProfile)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/profiles/linkedin/synthesize", nil)
	req.Header.Set("X-User-ID", "u-9")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var p domain.VoiceProfile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.Version != "1.2.0" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestSynthesizeProfile_ErrorMappings(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"conflict", services.ErrProfileConflict, http.StatusConflict},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			prof := stubProfileSvc{synthesizeFn: func(context.Context, string, domain.Platform) (*domain.VoiceProfile, error) {
				return nil, tc.err
			}}
			h := newStubHandlers(stubIngestSvc{}, prof, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

			r := gin.New()
			r.POST("/profiles/:platform/synthesize", h.SynthesizeProfile)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/profiles/instagram/synthesize", nil))

			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestGetProfile_FallbackQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotFallback bool
	prof := stubProfileSvc{getFn: func(ctx context.Context, uid string, platform domain.Platform, fallback bool) (*domain.VoiceProfile, error) {
		gotFallback = fallback
		if !fallback {
			return nil, services.ErrProfileNotFound
		}
		return &domain.VoiceProfile{UserID: uid, Platform: platform, Version: "0.0.0"}, nil
	}}
	h := newStubHandlers(stubIngestSvc{}, prof, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.GET("/profiles/:platform", h.GetProfile)

	// without fallback: 404
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profiles/instagram", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if gotFallback {
		t.Fatalf("fallback should default to false")
	}

	// with fallback=default: neutral profile
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profiles/instagram?fallback=default", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !gotFallback {
		t.Fatalf("fallback=default not propagated")
	}
	var p domain.VoiceProfile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.Version != "0.0.0" {
		t.Fatalf("expected neutral profile, got %+v", p)
	}
}

func TestGetProfileVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)

	prof := stubProfileSvc{getVersionFn: func(ctx context.Context, uid string, platform domain.Platform, version string) (*domain.VoiceProfile, error) {
		if version == "1.1.0" {
			return &domain.VoiceProfile{UserID: uid, Platform: platform, Version: version}, nil
		}
		return nil, services.ErrProfileNotFound
	}}
	h := newStubHandlers(stubIngestSvc{}, prof, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.GET("/profiles/:platform/versions/:version", h.GetProfileVersion)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profiles/twitter/versions/1.1.0", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profiles/twitter/versions/9.9.9", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
