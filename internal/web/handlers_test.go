package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetworks/catalog/internal/catalog"
	"github.com/cabinetworks/catalog/internal/config"
)

// fakeService is a scriptable CatalogService for handler tests.
type fakeService struct {
	uploadResult   *catalog.UploadResult
	uploadErr      error
	lastUpload     catalog.UploadRequest
	rollbackResult *catalog.RollbackResult
	rollbackErr    error
	backups        []catalog.BackupSummary
	backupsErr     error
}

func (f *fakeService) Upload(ctx context.Context, req catalog.UploadRequest) (*catalog.UploadResult, error) {
	f.lastUpload = req
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.uploadResult, nil
}

func (f *fakeService) Rollback(ctx context.Context, manufacturerID int64, sessionID string) (*catalog.RollbackResult, error) {
	if f.rollbackErr != nil {
		return nil, f.rollbackErr
	}
	return f.rollbackResult, nil
}

func (f *fakeService) ListBackups(ctx context.Context, manufacturerID int64) ([]catalog.BackupSummary, error) {
	if f.backupsErr != nil {
		return nil, f.backupsErr
	}
	return f.backups, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Minute},
		Upload: config.UploadConfig{
			MaxFileSize:    1 << 20,
			ChunkThreshold: 512,
			ChunkSize:      500,
			BatchSize:      100,
			Dir:            filepath.Join(t.TempDir(), "uploads"),
		},
		Rate: config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T, svc CatalogService) *Server {
	t.Helper()
	return NewServer(svc, testConfig(t))
}

// multipartUpload builds a catalog upload request body.
func multipartUpload(t *testing.T, filename, content, uploadedBy string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("catalogFiles", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	if uploadedBy != "" {
		require.NoError(t, w.WriteField("uploadedBy", uploadedBy))
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestHandleCatalogUpload_Success(t *testing.T) {
	svc := &fakeService{
		uploadResult: &catalog.UploadResult{
			SessionID: "session-123",
			Stats: catalog.UploadStats{
				TotalProcessed:   3,
				Created:          2,
				Updated:          1,
				BackupCreated:    true,
				ProcessingMethod: catalog.MethodRegular,
			},
		},
	}
	server := newTestServer(t, svc)

	body, contentType := multipartUpload(t, "catalog.csv", "Item,Price\nB12,10.00\n", "dealer@example.com")
	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/7/catalog/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Catalog file uploaded and data saved successfully", resp.Message)
	assert.Equal(t, "session-123", resp.UploadSessionID)
	assert.Equal(t, 3, resp.Stats.TotalProcessed)

	// The handler passes request metadata through to the service.
	assert.Equal(t, int64(7), svc.lastUpload.ManufacturerID)
	assert.Equal(t, "catalog.csv", svc.lastUpload.OriginalName)
	assert.Equal(t, "dealer@example.com", svc.lastUpload.UploadedBy)
	assert.NotEmpty(t, svc.lastUpload.StoredName)

	// The file was spooled to disk for the service to read.
	_, err := os.Stat(svc.lastUpload.Path)
	assert.NoError(t, err)
}

func TestHandleCatalogUpload_DefaultsUploadedBy(t *testing.T) {
	svc := &fakeService{uploadResult: &catalog.UploadResult{SessionID: "s"}}
	server := newTestServer(t, svc)

	body, contentType := multipartUpload(t, "catalog.csv", "Item\nA\n", "")
	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "unknown", svc.lastUpload.UploadedBy)
}

func TestHandleCatalogUpload_MissingFile(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("uploadedBy", "dealer"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCatalogUpload_InvalidManufacturerID(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	body, contentType := multipartUpload(t, "catalog.csv", "Item\nA\n", "")
	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/not-a-number/catalog/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCatalogUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unsupported format", catalog.ErrUnsupportedFormat, http.StatusBadRequest, "FMT001"},
		{"file too large", catalog.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE001"},
		{"too many uploads", catalog.ErrTooManyUploads, http.StatusTooManyRequests, "UPL001"},
		{"backup failure", &catalog.BackupError{Err: errors.New("db down")}, http.StatusInternalServerError, "BKP001"},
		{"chunk failure", &catalog.ChunkError{Index: 1, Start: 501, End: 1000, Err: errors.New("tx aborted")}, http.StatusInternalServerError, "CHK001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &fakeService{uploadErr: tt.err})

			body, contentType := multipartUpload(t, "catalog.csv", "Item\nA\n", "")
			req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestHandleCatalogUpload_RemovesSpooledFileOnFailure(t *testing.T) {
	svc := &fakeService{uploadErr: catalog.ErrUnsupportedFormat}
	server := newTestServer(t, svc)

	body, contentType := multipartUpload(t, "catalog.csv", "Item\nA\n", "")
	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	_, err := os.Stat(svc.lastUpload.Path)
	assert.True(t, os.IsNotExist(err), "spooled file should be removed after a failed upload")
}

func TestHandleCatalogUpload_OversizedHeaderRejected(t *testing.T) {
	server := newTestServer(t, &fakeService{})
	server.cfg.Upload.MaxFileSize = 8

	body, contentType := multipartUpload(t, "catalog.csv", "Item,Price\nB12,10.00\n", "")
	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleCatalogUpload_MalformedMultipart(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	// A multipart content type with a body that is not multipart at all.
	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload",
		bytes.NewBufferString("this is not a multipart body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, "FILE001", resp.Code, "a malformed body is not an oversize failure")
}

func TestHandleCatalogUpload_BodyOverLimitRejected(t *testing.T) {
	server := newTestServer(t, &fakeService{})
	server.cfg.Upload.MaxFileSize = 8

	// Large enough to trip the request body limit during multipart parsing.
	body, contentType := multipartUpload(t, "catalog.csv", strings.Repeat("x", 2<<20), "")
	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FILE001", resp.Code)
}

func TestHandleRollback_Success(t *testing.T) {
	svc := &fakeService{
		rollbackResult: &catalog.RollbackResult{SessionID: "session-123", RestoredItems: 42},
	}
	server := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/7/catalog/rollback/session-123", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp rollbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 42, resp.RestoredItemsCount)
}

func TestHandleRollback_NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unknown session", catalog.ErrSessionNotFound},
		{"already rolled back", catalog.ErrAlreadyRolledBack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &fakeService{rollbackErr: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/7/catalog/rollback/ghost", nil)
			rec := httptest.NewRecorder()

			server.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestHandleListBackups(t *testing.T) {
	svc := &fakeService{
		backups: []catalog.BackupSummary{
			{ID: 2, SessionID: "newer", ItemsCount: 10, CreatedAt: time.Now()},
			{ID: 1, SessionID: "older", ItemsCount: 5, CreatedAt: time.Now().Add(-time.Hour)},
		},
	}
	server := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/manufacturers/7/catalog/backups", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp backupsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Backups, 2)
	assert.Equal(t, "newer", resp.Backups[0].SessionID)
}

func TestHandleListBackups_EmptyIsArray(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/manufacturers/7/catalog/backups", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backups":[]`)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestSecurityHeaders(t *testing.T) {
	server := newTestServer(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRateLimiter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3}
	server := NewServer(&fakeService{}, cfg)

	var lastCode int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
	// A different client is unaffected.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "198.51.100.7:9999"
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	server := NewServer(&fakeService{uploadResult: &catalog.UploadResult{SessionID: "s"}}, cfg)

	post := func() int {
		body, contentType := multipartUpload(t, "catalog.csv", "Item\nA\n", "")
		req := httptest.NewRequest(http.MethodPost, "/api/manufacturers/1/catalog/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// The tighter budget applies only to uploads; other catalog routes
	// stay within the general limit.
	req := httptest.NewRequest(http.MethodGet, "/api/manufacturers/1/catalog/backups", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
