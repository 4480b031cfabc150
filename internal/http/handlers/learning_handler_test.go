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

func TestRunLearning(t *testing.T) {
	gin.SetMode(gin.TestMode)

	learn := stubLearningSvc{runFn: func(ctx context.Context, uid string, platform domain.Platform) (*domain.LearningMetrics, error) {
		if uid != "u-3" || platform != domain.PlatformInstagram {
			t.Fatalf("service args mismatch: %s %s", uid, platform)
		}
		return &domain.LearningMetrics{UserID: uid, Platform: platform, GeneratedCount: 6}, nil
	}}
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, stubGenSvc{}, stubFeedbackSvc{}, learn)

	r := gin.New()
	r.POST("/learning/:platform/run", h.RunLearning)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/learning/instagram/run", nil)
	req.Header.Set("X-User-ID", "u-3")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var m domain.LearningMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json: %v", err)
	}
	if m.GeneratedCount != 6 {
		t.Fatalf("unexpected metrics: %+v", m)
	}

	// unsupported platform never reaches the service
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/learning/threads/run", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for threads, got %d", w.Code)
	}
}

func TestGetLearning(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"found", nil, http.StatusOK},
		{"never ran", services.ErrMetricsNotFound, http.StatusNotFound},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			learn := stubLearningSvc{getFn: func(ctx context.Context, uid string, platform domain.Platform) (*domain.LearningMetrics, error) {
				if tc.err != nil {
					return nil, tc.err
				}
				return &domain.LearningMetrics{UserID: uid, Platform: platform}, nil
			}}
			h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, stubGenSvc{}, stubFeedbackSvc{}, learn)

			r := gin.New()
			r.GET("/learning/:platform", h.GetLearning)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/learning/twitter", nil))

			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}
