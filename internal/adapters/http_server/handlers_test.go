package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "review_ingest/internal/adapters/http_server"
	"review_ingest/internal/app"
	"review_ingest/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	created []domain.Review
	listOut domain.ReviewsPage
}

func (f *fakeRepo) CreateReviews(ctx context.Context, rs []domain.Review) (int64, error) {
	f.created = append(f.created, rs...)
	return int64(len(rs)), nil
}

func (f *fakeRepo) ListReviews(ctx context.Context, ownerID int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	return f.listOut, nil
}

type fakeCache struct{ store map[string][]byte }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, _ := json.Marshal(v)
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) RecognizeText(ctx context.Context, image []byte) (domain.OCRResult, error) {
	return domain.OCRResult{Text: f.text, Confidence: 0.9}, f.err
}

func newTestServer(repo *fakeRepo) http.Handler {
	cache := &fakeCache{}
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Ingest:  app.NewIngestionService(repo, app.NormalizerConfig{}),
		Extract: app.NewExtractionService(&fakeOCR{text: "네이버 ⭐⭐⭐⭐ 정말 좋아요"}, cache, time.Minute),
		Q:       app.NewQueryService(repo, cache, time.Minute),
	})
	return srv.Mux()
}

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// ---- tests ----

func TestBulkUpload_OK(t *testing.T) {
	repo := &fakeRepo{}
	h := newTestServer(repo)

	csv := "platform,business,content\n" +
		"naver,shop1,long enough content\n" +
		"kakao,shop2,long enough content\n"
	body, ct := multipartFile(t, "file", "reviews.csv", []byte(csv))

	req := httptest.NewRequest("POST", "/v1/reviews/bulk", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Owner-ID", "7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Created int    `json:"created"`
		Summary struct {
			TotalProcessed      int `json:"totalProcessed"`
			SuccessfullyCreated int `json:"successfullyCreated"`
		} `json:"summary"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Created != 2 || resp.Summary.SuccessfullyCreated != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Summary.TotalProcessed != 2 {
		t.Fatalf("total processed: %d", resp.Summary.TotalProcessed)
	}
	if len(repo.created) != 2 || repo.created[0].OwnerID != 7 {
		t.Fatalf("unexpected persisted rows: %+v", repo.created)
	}
}

func TestBulkUpload_MissingOwner(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	body, ct := multipartFile(t, "file", "r.csv", []byte("platform,business,content\n"))
	req := httptest.NewRequest("POST", "/v1/reviews/bulk", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/problem+json") {
		t.Fatalf("content type: %s", rr.Header().Get("Content-Type"))
	}
}

func TestBulkUpload_UnsupportedExtension(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	body, ct := multipartFile(t, "file", "reviews.pdf", []byte("x"))
	req := httptest.NewRequest("POST", "/v1/reviews/bulk", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Owner-ID", "7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestBulkUpload_NoValidRows(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	csv := "platform,business,content\n,missing,platform here\n"
	body, ct := multipartFile(t, "file", "r.csv", []byte(csv))
	req := httptest.NewRequest("POST", "/v1/reviews/bulk", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Owner-ID", "7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success     bool     `json:"success"`
		Error       string   `json:"error"`
		Details     []string `json:"details"`
		TotalErrors int      `json:"totalErrors"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.TotalErrors != 1 || len(resp.Details) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExtract_Text(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	req := httptest.NewRequest("POST", "/v1/extractions",
		strings.NewReader(`{"text":"네이버 ⭐⭐⭐ 좋아요"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Platform string `json:"platform"`
			Rating   int    `json:"rating"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.Platform != "naver" || resp.Data.Rating != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExtract_EmptyText(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	req := httptest.NewRequest("POST", "/v1/extractions", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestExtract_Image(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	body, ct := multipartFile(t, "image", "shot.png", []byte("png-bytes"))
	req := httptest.NewRequest("POST", "/v1/extractions", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Success bool `json:"success"`
		Cache   bool `json:"cache"`
		Data    struct {
			Platform   string  `json:"platform"`
			Confidence float64 `json:"confidence"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Cache || resp.Data.Platform != "naver" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Data.Confidence != 0.9 {
		t.Fatalf("confidence: %v", resp.Data.Confidence)
	}
}

func TestListReviews_ETag(t *testing.T) {
	repo := &fakeRepo{listOut: domain.ReviewsPage{Items: []domain.Review{
		{ID: 1, OwnerID: 7, Platform: "naver", Business: "shop", Content: "nice place", Author: "익명", Rating: 5},
	}}}
	h := newTestServer(repo)

	req := httptest.NewRequest("GET", "/v1/reviews?limit=50", nil)
	req.Header.Set("X-Owner-ID", "7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req2 := httptest.NewRequest("GET", "/v1/reviews?limit=50", nil)
	req2.Header.Set("X-Owner-ID", "7")
	req2.Header.Set("If-None-Match", etag)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req2)

	if rr2.Code != http.StatusNotModified {
		t.Fatalf("status %d, want 304", rr2.Code)
	}
}

func TestListReviews_InvalidLimit(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	req := httptest.NewRequest("GET", "/v1/reviews?limit=9000", nil)
	req.Header.Set("X-Owner-ID", "7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(&fakeRepo{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}
