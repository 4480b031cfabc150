package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/ingest"
	"github.com/voicemirror/go-voice-backend/internal/scrape"
	"github.com/voicemirror/go-voice-backend/internal/services"
)

func TestIngestPosts_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got struct {
		user     string
		platform domain.Platform
		raws     int
	}
	ing := stubIngestSvc{ingestFn: func(ctx context.Context, userID string, platform domain.Platform, raws []ingest.RawPost) (*services.IngestReport, error) {
		got.user = userID
		got.platform = platform
		got.raws = len(raws)
		return &services.IngestReport{Stored: 2, Skipped: []string{"p3: duplicate"}}, nil
	}}
	h := newStubHandlers(ing, stubProfileSvc{}, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.POST("/posts/ingest", h.IngestPosts)

	body := `{"platform":"Instagram","posts":[{"external_id":"p1","caption":"hello #world"},{"external_id":"p2"},{"external_id":"p3"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts/ingest", bytes.NewBufferString(body))
	req.Header.Set("X-User-ID", "u-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.user != "u-1" || got.platform != domain.PlatformInstagram || got.raws != 3 {
		t.Fatalf("service args mismatch: %+v", got)
	}
	var report services.IngestReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("json: %v", err)
	}
	if report.Stored != 2 || len(report.Skipped) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestIngestPosts_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"missing platform", `{"posts":[]}`, nil, http.StatusBadRequest},
		{"invalid platform", `{"platform":"myspace","posts":[]}`, services.ErrInvalidPlatform, http.StatusBadRequest},
		{"internal", `{"platform":"twitter","posts":[]}`, context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ing := stubIngestSvc{ingestFn: func(ctx context.Context, userID string, platform domain.Platform, raws []ingest.RawPost) (*services.IngestReport, error) {
				return nil, tc.err
			}}
			h := newStubHandlers(ing, stubProfileSvc{}, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

			r := gin.New()
			r.POST("/posts/ingest", h.IngestPosts)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts/ingest", bytes.NewBufferString(tc.body)))

			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code == "" || er.Message == "" {
				t.Fatalf("error envelope missing fields: %+v", er)
			}
		})
	}
}

func TestScrapePosts_MixedResults(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ing := stubIngestSvc{scrapeFn: func(ctx context.Context, userID string, targets []scrape.Target, limit int) (map[domain.Platform]services.PlatformIngest, error) {
		if len(targets) != 2 || limit != 25 {
			t.Fatalf("unexpected targets/limit: %v %d", targets, limit)
		}
		return map[domain.Platform]services.PlatformIngest{
			domain.PlatformInstagram: {IngestReport: services.IngestReport{Stored: 4}},
			domain.PlatformTwitter:   {Error: "scrape failed: profile is private"},
		}, nil
	}}
	h := newStubHandlers(ing, stubProfileSvc{}, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.POST("/scrape", h.ScrapePosts)

	body := `{"targets":[{"platform":"instagram","username":"jane"},{"platform":"twitter","username":"jane"}],"limit":25}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scrape", bytes.NewBufferString(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Results[domain.PlatformInstagram].Stored != 4 {
		t.Fatalf("instagram outcome lost: %+v", resp.Results)
	}
	if resp.Results[domain.PlatformTwitter].Error == "" {
		t.Fatalf("twitter error not surfaced: %+v", resp.Results)
	}
}

func TestScrapePosts_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		body string
		err  error
	}{
		{"missing targets", `{}`, nil},
		{"no targets", `{"targets":[]}`, services.ErrNoTargets},
		{"bad platform", `{"targets":[{"platform":"threads","username":"x"}]}`, services.ErrInvalidPlatform},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ing := stubIngestSvc{scrapeFn: func(ctx context.Context, userID string, targets []scrape.Target, limit int) (map[domain.Platform]services.PlatformIngest, error) {
				return nil, tc.err
			}}
			h := newStubHandlers(ing, stubProfileSvc{}, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

			r := gin.New()
			r.POST("/scrape", h.ScrapePosts)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scrape", bytes.NewBufferString(tc.body)))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}
