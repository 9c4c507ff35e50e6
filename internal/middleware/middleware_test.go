package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNoCache(t *testing.T) {
	r := gin.New()
	r.Use(NoCache())
	r.GET("/plain", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/cached", func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=60")
		c.String(http.StatusOK, "ok")
	})
	r.GET("/empty", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := map[string]string{
		"/plain":  "no-cache",
		"/cached": "public, max-age=60",
		"/empty":  "no-cache",
	}
	for path, want := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if got := w.Header().Get("Cache-Control"); got != want {
			t.Errorf("%s: Cache-Control = %q, want %q", path, got, want)
		}
	}
}

func TestRespondError(t *testing.T) {
	r := gin.New()
	r.GET("/fail", func(c *gin.Context) {
		RespondError(c, NewHTTPError("boom", "json"))
	})
	r.GET("/bad-status", func(c *gin.Context) {
		RespondError(c, HTTPError{Message: "odd", Status: 999})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
	var body HTTPError
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "boom" || body.Category != "json" || body.Status != 400 {
		t.Errorf("body = %+v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad-status", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status mapped to %d, want 400", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get(RequestIDHeader)
	if len(id) != 36 || w.Body.String() != id {
		t.Errorf("generated id = %q, body = %q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "client-id" {
		t.Errorf("client id not reused: %q", got)
	}
}

func TestRequestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeLimit(16))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			RespondError(c, NewHTTPError(err.Error(), "body", http.StatusRequestEntityTooLarge))
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("small body status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body status = %d, want 413", w.Code)
	}

	// Unknown length: the reader itself stops at the limit.
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(strings.Repeat("x", 64))))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("chunked body status = %d, want 413", w.Code)
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(limiter.RateLimit())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other ip status = %d", w.Code)
	}

	if n := limiter.Cleanup(-time.Second); n != 2 {
		t.Errorf("Cleanup removed %d limiters, want 2", n)
	}
}

func TestIPRateLimiterIgnoresForwardedHeaders(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 1)
	r := gin.New()
	r.Use(limiter.RateLimit())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	passed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.9.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.8.8.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			passed++
		}
	}
	if passed != 1 {
		t.Errorf("%d of 20 requests with rotating X-Forwarded-For passed, want 1", passed)
	}
}

func TestIPRateLimiterTrustedProxy(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 1).TrustForwarded()
	r := gin.New()
	if err := r.SetTrustedProxies([]string{"192.0.2.1"}); err != nil {
		t.Fatal(err)
	}
	r.Use(limiter.RateLimit())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	send := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// The proxy appends the real peer; anything left of it is client supplied.
	passed := 0
	for i := 0; i < 20; i++ {
		if send("192.0.2.1:4000", fmt.Sprintf("10.9.9.%d, 203.0.113.9", i)) == http.StatusOK {
			passed++
		}
	}
	if passed != 1 {
		t.Errorf("%d of 20 spoofed requests through the proxy passed, want 1", passed)
	}

	for i := 0; i < 3; i++ {
		if code := send("192.0.2.1:4000", fmt.Sprintf("203.0.113.%d", 20+i)); code != http.StatusOK {
			t.Errorf("distinct client %d status = %d", i, code)
		}
	}

	// An untrusted peer cannot pick its key with the header.
	if code := send("198.51.100.7:4000", "203.0.113.50"); code != http.StatusOK {
		t.Errorf("first direct request status = %d", code)
	}
	if code := send("198.51.100.7:4000", "203.0.113.51"); code != http.StatusTooManyRequests {
		t.Errorf("second direct request status = %d, want 429", code)
	}
}

func TestCompress(t *testing.T) {
	payload := strings.Repeat(`{"chart":"bar","format":"png"},`, 100)
	image := []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 2048))

	r := gin.New()
	r.Use(Compress("/api/charts"))
	r.GET("/api/stats", func(c *gin.Context) { c.Data(http.StatusOK, "application/json", []byte(payload)) })
	r.POST("/api/charts/png", func(c *gin.Context) { c.Data(http.StatusOK, "image/png", image) })

	send := func(method, target string, gz bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if gz {
			req.Header.Set("Accept-Encoding", "gzip, deflate")
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodGet, "/api/stats", true)
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("json response not compressed, headers = %v", w.Header())
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != payload {
		t.Error("decompressed body differs")
	}

	if w := send(http.MethodGet, "/api/stats", false); w.Header().Get("Content-Encoding") != "" || w.Body.String() != payload {
		t.Error("response compressed for a client without gzip")
	}

	w = send(http.MethodPost, "/api/charts/png", true)
	if w.Header().Get("Content-Encoding") != "" {
		t.Error("image response compressed")
	}
	if !bytes.Equal(w.Body.Bytes(), image) {
		t.Error("image body altered")
	}
}

func TestConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.Use(ConcurrencyLimit(1, 10*time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.String(http.StatusOK, "ok")
	})
	r.GET("/fast", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	var wg sync.WaitGroup
	wg.Add(1)
	slow := httptest.NewRecorder()
	go func() {
		defer wg.Done()
		r.ServeHTTP(slow, httptest.NewRequest(http.MethodGet, "/slow", nil))
	}()
	<-entered

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}

	close(release)
	wg.Wait()
	if slow.Code != http.StatusOK {
		t.Errorf("slow request status = %d", slow.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	if w.Code != http.StatusOK {
		t.Errorf("request after release status = %d", w.Code)
	}
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(5 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusRequestTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusRequestTimeout {
		t.Errorf("status = %d, want 408", w.Code)
	}
}
