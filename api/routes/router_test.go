package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/gallery-backend/internal/images"
	"github.com/angelmondragon/gallery-backend/internal/media"
	"github.com/angelmondragon/gallery-backend/internal/orphans"
	"github.com/angelmondragon/gallery-backend/pkg/config"
	"github.com/angelmondragon/gallery-backend/pkg/db/models"
	"github.com/angelmondragon/gallery-backend/pkg/metrics"
	"github.com/angelmondragon/gallery-backend/pkg/storage"
)

type fakeProvider struct {
	mu      sync.Mutex
	url     string
	err     error
	uploads int
	deletes int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Upload(ctx context.Context, r io.Reader, params storage.UploadParams) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.err != nil {
		return nil, f.err
	}
	return &storage.Object{SecureURL: f.url, PublicID: "cat123"}, nil
}

func (f *fakeProvider) Delete(ctx context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func (f *fakeProvider) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type recorderFunc func(ctx context.Context, o orphans.Orphan) error

func (f recorderFunc) Record(ctx context.Context, o orphans.Orphan) error { return f(ctx, o) }

type harness struct {
	handler  http.Handler
	db       *gorm.DB
	provider *fakeProvider
	orphans  []orphans.Orphan
}

func newHarness(t *testing.T, deps func(*Dependencies)) *harness {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Image{}))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	h := &harness{db: conn, provider: &fakeProvider{url: "https://media.example/cat123.png"}}

	reg := prometheus.NewRegistry()
	uploadMetrics := metrics.NewUploadMetrics(reg)
	gateway, err := media.NewGateway(h.provider, media.WithMetrics(uploadMetrics))
	require.NoError(t, err)
	recorder := recorderFunc(func(ctx context.Context, o orphans.Orphan) error {
		h.orphans = append(h.orphans, o)
		return nil
	})
	svc, err := images.NewService(images.NewRepository(conn), gateway, recorder, uploadMetrics, nil)
	require.NoError(t, err)

	cfg := &config.Config{
		App:      config.AppConfig{Env: "test", CORSOrigins: []string{"*"}},
		Media:    config.MediaConfig{MaxUploadMB: 1},
		Supabase: config.SupabaseConfig{URL: "https://project.supabase.co", AnonKey: "anon-key"},
	}
	d := Dependencies{
		Images:  svc,
		DB:      stubPinger{},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if deps != nil {
		deps(&d)
	}
	h.handler = NewRouter(cfg, nil, d)
	return h
}

func multipartBody(t *testing.T, fileName string, file []byte, title *string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if file != nil {
		part, err := mw.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	if title != nil {
		require.NoError(t, mw.WriteField("title", *title))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) upload(t *testing.T, fileName string, file []byte, title *string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fileName, file, title)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	return h.do(req)
}

func (h *harness) rowCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Image{}).Count(&n).Error)
	return n
}

func TestUploadThenListCatScenario(t *testing.T) {
	h := newHarness(t, nil)
	title := "My Cat"

	rec := h.upload(t, "cat.png", bytes.Repeat([]byte{0x42}, 10*1024), &title)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "My Cat", created["title"])
	require.Equal(t, "https://media.example/cat123.png", created["image_url"])
	require.NotZero(t, created["id"])
	require.Len(t, created, 3)

	list := h.do(httptest.NewRequest(http.MethodGet, "/api/images", nil))
	require.Equal(t, http.StatusOK, list.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &rows))
	require.NotEmpty(t, rows)
	require.Equal(t, created, rows[0])
}

func TestListImagesNewestFirst(t *testing.T) {
	h := newHarness(t, nil)

	empty := h.do(httptest.NewRequest(http.MethodGet, "/api/images", nil))
	require.Equal(t, http.StatusOK, empty.Code)
	require.JSONEq(t, `[]`, empty.Body.String())

	for i := 0; i < 3; i++ {
		rec := h.upload(t, "a.png", []byte("img"), nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/images", nil))
	var rows []models.Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		require.Greater(t, rows[i-1].ID, rows[i].ID)
	}
	require.Nil(t, rows[0].Title)
}

func TestUploadWithoutFileIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	title := "no file"

	cases := map[string]*httptest.ResponseRecorder{
		"missing part": h.upload(t, "", nil, &title),
		"empty file":   h.upload(t, "empty.png", []byte{}, nil),
		"not multipart": h.do(func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"title":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}()),
	}
	for name, rec := range cases {
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.JSONEq(t, `{"error":"no file uploaded"}`, rec.Body.String(), name)
	}
	require.Zero(t, h.provider.uploadCount())
	require.Zero(t, h.rowCount(t))
}

func TestUploadTooLarge(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.upload(t, "huge.png", bytes.Repeat([]byte{1}, 2<<20), nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.JSONEq(t, `{"error":"file too large"}`, rec.Body.String())

	// unknown length falls through to MaxBytesReader
	body, contentType := multipartBody(t, "huge.png", bytes.Repeat([]byte{1}, 2<<20), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", io.MultiReader(body))
	req.ContentLength = -1
	req.Header.Set("Content-Type", contentType)
	rec = h.do(req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.JSONEq(t, `{"error":"file too large"}`, rec.Body.String())

	require.Zero(t, h.provider.uploadCount())
}

func TestUploadProviderFailureCreatesNoRow(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.err = errors.New("Invalid api_key abc123")

	rec := h.upload(t, "cat.png", []byte("img"), nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"upload failed"}`, rec.Body.String())
	require.Zero(t, h.rowCount(t))
}

func TestUploadInsertFailureKeepsRemoteObject(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.db.Migrator().DropTable(&models.Image{}))

	rec := h.upload(t, "cat.png", []byte("img"), nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"upload failed"}`, rec.Body.String())
	require.Equal(t, 1, h.provider.uploadCount())
	require.Zero(t, h.provider.deletes)
	require.Len(t, h.orphans, 1)
	require.Equal(t, "cat123", h.orphans[0].PublicID)
}

func TestListImagesStorageFailure(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.db.Migrator().DropTable(&models.Image{}))

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/images", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	live := h.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, live.Code)
	require.JSONEq(t, `{"status":"live"}`, live.Body.String())
	require.Equal(t, "test", live.Header().Get("X-Gallery-Env"))

	ready := h.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, ready.Code)
	require.JSONEq(t, `{"status":"ready"}`, ready.Body.String())

	down := newHarness(t, func(d *Dependencies) { d.Redis = stubPinger{err: errors.New("connection refused")} })
	rec := down.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"error":"dependency unavailable"}`, rec.Body.String())
}

func TestClientConfig(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/public/client-config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"supabase_url":"https://project.supabase.co","supabase_anon_key":"anon-key"}`, rec.Body.String())
}

func TestMiddlewareChain(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
	req.Header.Set("Origin", "https://gallery.example")
	req.Header.Set("X-Request-Id", "req-123")
	rec := h.do(req)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	missing := h.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, missing.Code)
	require.JSONEq(t, `{"error":"resource not found"}`, missing.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusCreated, h.upload(t, "cat.png", []byte("img"), nil).Code)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `gallery_upload_requests_total{outcome="success"} 1`)
}
