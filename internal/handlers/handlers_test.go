package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/chartserver/internal/charts"
	"github.com/rmitchellscott/chartserver/internal/database"
	"github.com/rmitchellscott/chartserver/internal/middleware"
	"github.com/rmitchellscott/chartserver/internal/rendering"
)

const barSpec = `{"width":320,"height":200,"x_axis_data":["Mon","Tue","Wed"],"series_list":[{"name":"Email","data":[120,132,101]}]}`

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	logs   *database.RenderLogService
}

func newTestServer(t *testing.T, withDB bool, protect ...gin.HandlerFunc) *testServer {
	t.Helper()
	reg, err := charts.NewRegistry(charts.RegistryOptions{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	pool := rendering.NewWorkerPool(2, 8)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		pool.Stop()
		cancel()
	})

	var logs *database.RenderLogService
	opts := rendering.PipelineOptions{Pool: pool}
	if withDB {
		db, err := database.OpenSQLite(":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		if err := database.RunMigrations(db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		})
		logs = database.NewRenderLogService(db)
		t.Cleanup(logs.Close)
		opts.Recorder = logs
	}

	h := NewChartHandler(rendering.NewPipeline(reg, opts), pool, logs)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.NoCache())
	RegisterChartRoutes(r, h, protect...)
	r.NoRoute(UI(fstest.MapFS{
		"index.html":    {Data: []byte("<html>charts</html>")},
		"assets/app.js": {Data: []byte("console.log(1)")},
	}))
	return &testServer{router: r, logs: logs}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.HTTPError {
	t.Helper()
	var e middleware.HTTPError
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

func TestPing(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodGet, "/ping", "")
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Errorf("ping = %d %q", w.Code, w.Body.String())
	}
}

func TestRenderFormats(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		format      string
		contentType string
	}{
		{"svg", "image/svg+xml"},
		{"png", "image/png"},
		{"jpeg", "image/jpeg"},
		{"webp", "image/webp"},
		{"avif", "image/avif"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/charts/"+tt.format, barSpec)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if got := w.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if got := w.Header().Get("Cache-Control"); got != "no-cache" {
				t.Errorf("Cache-Control = %q", got)
			}
			if w.Body.Len() == 0 {
				t.Error("empty body")
			}
		})
	}
}

func TestRenderPNGIsDecodable(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodPost, "/api/charts/png", barSpec)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Errorf("size = %dx%d, want 320x200", b.Dx(), b.Dy())
	}
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/api/charts?opts="+url.QueryEscape(barSpec), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("default preview Content-Type = %q", got)
	}
	if !strings.Contains(w.Body.String(), "<svg") {
		t.Error("preview body is not svg")
	}

	w = s.do(http.MethodGet, "/api/charts?format=PNG&opts="+url.QueryEscape(barSpec), "")
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("png preview Content-Type = %q", got)
	}

	w = s.do(http.MethodGet, "/api/charts?format=gif&opts="+url.QueryEscape(barSpec), "")
	if got := w.Header().Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("unknown format Content-Type = %q", got)
	}

	w = s.do(http.MethodGet, "/api/charts", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing opts status = %d", w.Code)
	}
}

func TestRenderErrors(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		name     string
		target   string
		body     string
		category string
		code     string
	}{
		{"malformed json", "/api/charts/svg", `{"type":`, "json", "malformed_spec"},
		{"empty body", "/api/charts/png", "", "json", "malformed_spec"},
		{"pie without series", "/api/charts/png", `{"type":"pie"}`, "pie_chart", "chart_build"},
		{"bad option type", "/api/charts/svg", `{"width":"wide"}`, "bar_chart", "chart_build"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, tt.target, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
				t.Errorf("Content-Type = %q", got)
			}
			e := decodeError(t, w)
			if e.Category != tt.category || e.Code != tt.code || e.Status != http.StatusBadRequest {
				t.Errorf("error = %+v", e)
			}
			if e.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestRenderBodyTooLarge(t *testing.T) {
	reg, _ := charts.NewRegistry(charts.RegistryOptions{})
	h := NewChartHandler(rendering.NewPipeline(reg, rendering.PipelineOptions{}), nil, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 8)
		c.Next()
	})
	RegisterChartRoutes(r, h)

	req := httptest.NewRequest(http.MethodPost, "/api/charts/svg", strings.NewReader(barSpec))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
	if e := decodeError(t, w); e.Category != "body_too_large" || len(e.Extra) != 1 {
		t.Errorf("error = %+v", e)
	}
}

func TestProtectGuardsRenderRoutesOnly(t *testing.T) {
	deny := func(c *gin.Context) {
		middleware.RespondError(c, middleware.NewHTTPError("Authentication required", "auth", http.StatusUnauthorized))
	}
	s := newTestServer(t, false, deny)

	if w := s.do(http.MethodPost, "/api/charts/svg", barSpec); w.Code != http.StatusUnauthorized {
		t.Errorf("render status = %d, want 401", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/charts?opts=%7B%7D", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("preview status = %d, want 401", w.Code)
	}
	if w := s.do(http.MethodGet, "/ping", ""); w.Code != http.StatusOK {
		t.Errorf("ping status = %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/basic-info", ""); w.Code != http.StatusOK {
		t.Errorf("basic-info status = %d", w.Code)
	}
}

func TestBasicInfo(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodGet, "/api/basic-info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var info struct {
		Families []string `json:"families"`
		Themes   []string `json:"themes"`
		Charts   []string `json:"charts"`
		Formats  []string `json:"formats"`
		Version  string   `json:"version"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(info.Families) == 0 || len(info.Themes) == 0 {
		t.Errorf("families = %v, themes = %v", info.Families, info.Themes)
	}
	if len(info.Charts) != len(rendering.ChartKinds()) || len(info.Formats) != len(rendering.Formats) {
		t.Errorf("charts = %v, formats = %v", info.Charts, info.Formats)
	}
	if info.Version == "" {
		t.Error("version missing")
	}
}

func TestStatsWithoutDatabase(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["health"]; !ok {
		t.Error("health missing")
	}
	if _, ok := body["renders"]; ok {
		t.Error("renders present without a database")
	}

	if w := s.do(http.MethodGet, "/api/renders", ""); w.Code != http.StatusNotFound {
		t.Errorf("renders without database status = %d, want 404", w.Code)
	}
}

func TestStatsAndRendersWithDatabase(t *testing.T) {
	s := newTestServer(t, true)
	s.do(http.MethodPost, "/api/charts/svg", barSpec)
	s.do(http.MethodPost, "/api/charts/png", barSpec)
	s.do(http.MethodPost, "/api/charts/png", `{"type":"pie"}`)

	w := s.do(http.MethodGet, "/api/stats?since=1h", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Renders        database.RenderStats `json:"renders"`
		DroppedRecords *int64               `json:"dropped_records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Renders.TotalRenders != 3 || body.Renders.FailedRenders != 1 {
		t.Errorf("stats = %+v", body.Renders)
	}
	if body.DroppedRecords == nil || *body.DroppedRecords != 0 {
		t.Errorf("dropped_records = %v, want 0", body.DroppedRecords)
	}
	if body.Renders.ByFormat["png"] != 2 || body.Renders.ByChart["pie"] != 1 {
		t.Errorf("by format = %v, by chart = %v", body.Renders.ByFormat, body.Renders.ByChart)
	}

	if w := s.do(http.MethodGet, "/api/stats?since=soon", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid since status = %d", w.Code)
	}

	w = s.do(http.MethodGet, "/api/renders?failed=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("renders status = %d", w.Code)
	}
	var list struct {
		Renders []database.RenderLog `json:"renders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Renders) != 1 || list.Renders[0].ErrorCategory != "pie_chart" {
		t.Errorf("failed renders = %+v", list.Renders)
	}
	if list.Renders[0].RequestID == "" {
		t.Error("request id not recorded")
	}
}

func TestUIFallback(t *testing.T) {
	s := newTestServer(t, false)

	for _, target := range []string{"/", "/editor/bar"} {
		w := s.do(http.MethodGet, target, "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "charts") {
			t.Errorf("%s: %d %q", target, w.Code, w.Body.String())
		}
		if got := w.Header().Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
			t.Errorf("%s: Cache-Control = %q", target, got)
		}
	}

	w := s.do(http.MethodGet, "/assets/app.js", "")
	if got := w.Header().Get("Content-Type"); got != "application/javascript" {
		t.Errorf("js Content-Type = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=31536000" {
		t.Errorf("asset Cache-Control = %q", got)
	}

	if w := s.do(http.MethodGet, "/api/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown api status = %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/anything", "{}"); w.Code != http.StatusNotFound {
		t.Errorf("unknown POST status = %d", w.Code)
	}
}
