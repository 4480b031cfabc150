package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/repo"
	"github.com/voicemirror/go-voice-backend/internal/services"
	"github.com/voicemirror/go-voice-backend/internal/textgen"
)

func TestGenerateContent_Created(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gen := stubGenSvc{generateFn: func(ctx context.Context, uid string, params services.GenerateParams) ([]domain.GeneratedContent, []services.VariationError, error) {
		if params.Platform != domain.PlatformInstagram || params.VariationCount != 3 {
			t.Fatalf("params mismatch: %+v", params)
		}
		if params.Trend == nil || params.Trend.Title != "AI week" {
			t.Fatalf("trend not propagated: %+v", params.Trend)
		}
		items := make([]domain.GeneratedContent, 2)
		for i := range items {
			items[i] = domain.GeneratedContent{ID: uuid.NewString(), UserID: uid, Platform: params.Platform}
		}
		return items, []services.VariationError{{Variation: 3, Message: "deadline exceeded", Transient: true}}, nil
	}}
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, gen, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.POST("/generate", h.GenerateContent)

	body := `{"platform":"instagram","context":"dashboard launch","content_type":"caption","variation_count":3,"trend":{"title":"AI week"}}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Items) != 2 || len(resp.Errors) != 1 {
		t.Fatalf("expected 2 items and 1 in-band error, got %d/%d", len(resp.Items), len(resp.Errors))
	}
	if !resp.Errors[0].Transient {
		t.Fatalf("transient flag lost: %+v", resp.Errors[0])
	}
}

func TestGenerateContent_ErrorMappings(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty context", services.ErrEmptyContext, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad content type", services.ErrInvalidContentType, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad count", services.ErrInvalidVariationCount, http.StatusBadRequest, ErrCodeBadRequest},
		{"strict no profile", services.ErrProfileNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"backend down", fmt.Errorf("%w: deadline exceeded", services.ErrBackendUnavailable), http.StatusServiceUnavailable, ErrCodeBackendUnavailable},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeGenerationFailed},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			gen := stubGenSvc{generateFn: func(context.Context, string, services.GenerateParams) ([]domain.GeneratedContent, []services.VariationError, error) {
				return nil, nil, tc.err
			}}
			h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, gen, stubFeedbackSvc{}, stubLearningSvc{})

			r := gin.New()
			r.POST("/generate", h.GenerateContent)

			body := `{"platform":"instagram","context":"x"}`
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(body)))

			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.wantCode {
				t.Fatalf("code=%q, want %q", er.Code, tc.wantCode)
			}
		})
	}
}

func TestGenerateContent_BindingError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gen := stubGenSvc{generateFn: func(context.Context, string, services.GenerateParams) ([]domain.GeneratedContent, []services.VariationError, error) {
		t.Fatalf("service should not be called on binding error")
		return nil, nil, nil
	}}
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, gen, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.POST("/generate", h.GenerateContent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{"platform":"instagram"}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListContent_Pagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gen := stubGenSvc{listFn: func(ctx context.Context, uid string, platform domain.Platform, page, pageSize int) ([]domain.GeneratedContent, int64, error) {
		if platform != domain.PlatformTwitter || page != 2 || pageSize != 10 {
			t.Fatalf("list args mismatch: %s %d %d", platform, page, pageSize)
		}
		items := make([]domain.GeneratedContent, 10)
		return items, 45, nil
	}}
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, gen, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.GET("/content", h.ListContent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/content?platform=twitter&page=2&page_size=10", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ListContentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	p := resp.Pagination
	if p.Page != 2 || p.PageSize != 10 || p.Total != 45 || p.TotalPages != 5 || !p.HasNext {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestListContent_InvalidPlatformFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, stubGenSvc{}, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.GET("/content", h.ListContent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/content?platform=myspace", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

// TestListContent_ETag exercises the conditional-request path against a real
// GenerationService, since the ETag is derived from repo-level stats.
func TestListContent_ETag(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	profiles := services.NewProfileService(db)
	gen := &services.GenerationService{DB: db, Backend: textgen.Template{}, Profiles: profiles}
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, gen, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.GET("/content", h.ListContent)

	items, varErrs, err := gen.Generate(context.Background(), "etag-user", services.GenerateParams{
		Platform:       domain.PlatformInstagram,
		Context:        "launch week recap",
		ContentType:    services.ContentTypeCaption,
		VariationCount: 1,
	})
	if err != nil || len(varErrs) != 0 || len(items) != 1 {
		t.Fatalf("seed generation failed: %v %v %d", err, varErrs, len(items))
	}

	// first read yields the ETag
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/content", nil)
	req.Header.Set("X-User-ID", "etag-user")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	// replay with If-None-Match: 304, empty body
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/content", nil)
	req.Header.Set("X-User-ID", "etag-user")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body for 304")
	}

	// another user's ETag differs
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/content", nil)
	req.Header.Set("X-User-ID", "other-user")
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for other user, got %d", w.Code)
	}
}

// TestGenerateContent_IdempotentReplay verifies that a retried POST /generate
// with the same Idempotency-Key serves the stored result instead of producing
// new content.
func TestGenerateContent_IdempotentReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	gen := &services.GenerationService{DB: db, Backend: textgen.Template{}, Profiles: services.NewProfileService(db)}
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, gen, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	// stash the key the way the idempotency middleware does
	r.Use(func(c *gin.Context) {
		if k := c.GetHeader("Idempotency-Key"); k != "" {
			c.Set("idem.key", k)
		}
		c.Next()
	})
	r.POST("/generate", h.GenerateContent)

	send := func() *httptest.ResponseRecorder {
		body := `{"platform":"instagram","context":"retry test","content_type":"caption"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(body))
		req.Header.Set("X-User-ID", "retry-user")
		req.Header.Set("Idempotency-Key", "gen-key-1")
		r.ServeHTTP(w, req)
		return w
	}

	w := send()
	if w.Code != http.StatusCreated {
		t.Fatalf("first call expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var first GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(first.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(first.Items))
	}

	w = send()
	if w.Code != http.StatusCreated {
		t.Fatalf("replay expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var second GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].ID != first.Items[0].ID {
		t.Fatalf("replay produced new content: %+v vs %+v", second.Items, first.Items)
	}

	// no second row was persisted
	items, total, err := gen.ListContent(context.Background(), "retry-user", domain.PlatformInstagram, 1, 20)
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("expected exactly one stored item, got %d (%v)", total, err)
	}
}

func TestGetContent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	id := uuid.NewString()
	gen := stubGenSvc{getFn: func(ctx context.Context, uid, got string) (*domain.GeneratedContent, error) {
		if got != id {
			return nil, services.ErrContentNotFound
		}
		return &domain.GeneratedContent{ID: id, UserID: uid}, nil
	}}
	h := newStubHandlers(stubIngestSvc{}, stubProfileSvc{}, gen, stubFeedbackSvc{}, stubLearningSvc{})

	r := gin.New()
	r.GET("/content/:id", h.GetContent)

	// found
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/content/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// not a UUID
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/content/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	// missing
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/content/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
