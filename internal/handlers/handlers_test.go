package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"product-media/internal/capture"
	"product-media/internal/derive"
	"product-media/internal/progress"
	"product-media/internal/records"
	"product-media/internal/startup"
	"product-media/internal/storage"
	"product-media/internal/transcode"

	"github.com/gorilla/mux"
)

func newTestHandlers(t *testing.T) (*Handlers, *storage.MemoryStore) {
	t.Helper()

	store, err := records.New(context.Background(), filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("records.New() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	blobs := storage.NewMemoryStore()
	tracker := progress.NewTracker()
	pipeline := derive.New(
		capture.New(capture.DefaultTimeout),
		transcode.New(transcode.DefaultQuality, transcode.PosterQuality),
		blobs,
		store,
		tracker,
		derive.Options{
			Retry: storage.RetryConfig{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		},
	)

	config := &startup.Config{MaxUploadBytes: 32 << 20}
	return New(store, pipeline, tracker, config), blobs
}

func newTestRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/products/{id}/media", h.UploadMedia).Methods("POST")
	router.HandleFunc("/api/products/{id}/media", h.GetMedia).Methods("GET")
	router.HandleFunc("/api/products/{id}/media/{kind}", h.DeleteMedia).Methods("DELETE")
	router.HandleFunc("/api/media", h.ListMedia).Methods("GET")
	router.HandleFunc("/api/uploads/status", h.GetUploadStatus).Methods("GET")
	router.HandleFunc("/api/rederive", h.Rederive).Methods("POST")
	router.HandleFunc("/api/version", h.GetVersion).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	return router
}

func pngUploadBody(t *testing.T, fieldName, filename string) (*bytes.Buffer, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: 120, A: 255})
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error: %v", err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close() error: %v", err)
	}
	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, router *mux.Router, entityID string) MediaResponse {
	t.Helper()

	body, contentType := pngUploadBody(t, "file", "photo.png")
	req := httptest.NewRequest(http.MethodPost, "/api/products/"+entityID+"/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp MediaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	return resp
}

func TestUploadMedia(t *testing.T) {
	h, blobs := newTestHandlers(t)
	router := newTestRouter(h)

	resp := doUpload(t, router, "prod-1")

	if resp.EntityID != "prod-1" {
		t.Errorf("EntityID = %q, want prod-1", resp.EntityID)
	}
	if resp.Kind != "image" {
		t.Errorf("Kind = %q, want image", resp.Kind)
	}
	if resp.PrimaryURL == "" || resp.DerivedURL == "" {
		t.Errorf("expected both URLs, got primary=%q derived=%q", resp.PrimaryURL, resp.DerivedURL)
	}
	if resp.DisplayURL == resp.PrimaryURL {
		t.Error("display URL should carry a version parameter")
	}
	if resp.Warning != "" {
		t.Errorf("unexpected warning: %q", resp.Warning)
	}
	if blobs.Len() != 2 {
		t.Errorf("stored blobs = %d, want 2", blobs.Len())
	}
}

func TestUploadMediaMissingFileField(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	body, contentType := pngUploadBody(t, "wrong", "photo.png")
	req := httptest.NewRequest(http.MethodPost, "/api/products/prod-1/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadMediaUnsupportedType(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("not media"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/products/prod-1/media", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestGetMedia(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	doUpload(t, router, "prod-2")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/prod-2/media", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp MediaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.EntityID != "prod-2" {
		t.Errorf("EntityID = %q, want prod-2", resp.EntityID)
	}
	if resp.DisplayURL == "" {
		t.Error("expected a versioned display URL")
	}
}

func TestGetMediaNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/missing/media", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListMedia(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	doUpload(t, router, "prod-a")
	doUpload(t, router, "prod-b")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp []MediaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 2 {
		t.Errorf("got %d records, want 2", len(resp))
	}
}

func TestDeleteMedia(t *testing.T) {
	h, blobs := newTestHandlers(t)
	router := newTestRouter(h)

	doUpload(t, router, "prod-3")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/prod-3/media/image", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if blobs.Len() != 0 {
		t.Errorf("stored blobs after delete = %d, want 0", blobs.Len())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/prod-3/media", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestDeleteMediaKindMismatch(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	doUpload(t, router, "prod-4")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/prod-4/media/video", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteMediaUnknownKind(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/prod-4/media/audio", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetUploadStatusIdle(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/status?id=prod-9", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var status progress.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Uploading {
		t.Error("expected no upload in flight")
	}
}

func TestGetUploadStatusSnapshot(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	h.tracker.Set("prod-5", "Uploading image...")
	defer h.tracker.Clear("prod-5")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/status", nil))

	var snapshot map[string]progress.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatal(err)
	}
	if status, ok := snapshot["prod-5"]; !ok || !status.Uploading {
		t.Errorf("snapshot = %v, want prod-5 uploading", snapshot)
	}
}

func TestRederiveEmpty(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rederive", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var summary derive.RederiveSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 0 {
		t.Errorf("Processed = %d, want 0", summary.Processed)
	}
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != statusHealthy {
		t.Errorf("Status = %q, want %q", resp.Status, statusHealthy)
	}
	if !resp.Ready {
		t.Error("expected Ready=true")
	}
}

func TestLivenessCheckHead(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD body length = %d, want 0", rec.Body.Len())
	}
}

func TestReadinessCheck(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetVersion(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := newTestRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info startup.BuildInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Version == "" {
		t.Error("expected version in response")
	}
}
