package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/docroute/internal/config"
	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/infrastructure/storage/localfs"
)

type routerFake struct {
	decision domain.RoutingDecision
	err      error
	seen     []string
	content  []string
}

func (f *routerFake) Probe(context.Context, string) (domain.ProbeMetrics, error) {
	return f.decision.Metrics, f.err
}

func (f *routerFake) Route(_ context.Context, path string) (domain.RoutingDecision, error) {
	f.seen = append(f.seen, path)
	raw, _ := os.ReadFile(path)
	f.content = append(f.content, string(raw))
	return f.decision, f.err
}

func newTestRouter(t *testing.T, cfg config.Config, fake *routerFake) http.Handler {
	t.Helper()
	uploads, err := localfs.New(cfg.StagingDir, ".pdf")
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	return NewRouter(cfg, fake, uploads, nil).Handler()
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StagingDir:     t.TempDir(),
		UploadMaxBytes: 1 << 20,
	}
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func postRoute(t *testing.T, handler http.Handler, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, "file", "scan.pdf", content)
	req := httptest.NewRequest(http.MethodPost, "/v1/route", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(t, testConfig(t), &routerFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestRouteDocumentReturnsDecision(t *testing.T) {
	cfg := testConfig(t)
	fake := &routerFake{decision: domain.RoutingDecision{
		Engine:     domain.EngineOCR,
		Confidence: 0.8,
		Metrics:    domain.NewProbeMetrics(10, 50, 9),
	}}
	handler := newTestRouter(t, cfg, fake)

	res := postRoute(t, handler, []byte("%PDF-1.4 fake"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var got map[string]any
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["decision"] != "ocr" || got["confidence"] != 0.8 {
		t.Fatalf("unexpected response %+v", got)
	}
	metrics, ok := got["metrics"].(map[string]any)
	if !ok || metrics["pages"] != float64(10) || metrics["image_density"] != 0.9 {
		t.Fatalf("unexpected metrics %+v", got["metrics"])
	}

	if len(fake.content) != 1 || fake.content[0] != "%PDF-1.4 fake" {
		t.Fatalf("router did not see the uploaded bytes: %+v", fake.content)
	}
	if !strings.HasPrefix(fake.seen[0], cfg.StagingDir) {
		t.Fatalf("upload stored outside staging dir: %s", fake.seen[0])
	}
	entries, _ := os.ReadDir(cfg.StagingDir)
	if len(entries) != 0 {
		t.Fatalf("upload was not cleaned up")
	}
}

func TestRouteDocumentMissingMultipartField(t *testing.T) {
	handler := newTestRouter(t, testConfig(t), &routerFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/route", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestRouteDocumentRejectsGet(t *testing.T) {
	handler := newTestRouter(t, testConfig(t), &routerFake{})
	req := httptest.NewRequest(http.MethodGet, "/v1/route", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestRouteDocumentMapsUnreadablePDFTo422(t *testing.T) {
	fake := &routerFake{err: domain.WrapError(domain.ErrInvalidInput, "introspect pages", errors.New("malformed xref"))}
	handler := newTestRouter(t, testConfig(t), fake)

	res := postRoute(t, handler, []byte("not a pdf"))
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestRouteDocumentRejectsOversizedUpload(t *testing.T) {
	cfg := testConfig(t)
	cfg.UploadMaxBytes = 64
	handler := newTestRouter(t, cfg, &routerFake{})

	res := postRoute(t, handler, bytes.Repeat([]byte("x"), 4096))
	if res.Code < 400 || res.Code >= 500 {
		t.Fatalf("expected a 4xx rejection, got %d", res.Code)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	handler := newTestRouter(t, testConfig(t), &routerFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id req-42, got %q", got)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIRateLimitRPS = 1
	cfg.APIRateLimitBurst = 1
	handler := newTestRouter(t, cfg, &routerFake{decision: domain.RoutingDecision{Engine: domain.EngineText}})

	if res := postRoute(t, handler, []byte("%PDF")); res.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res.Code)
	}
	res := postRoute(t, handler, []byte("%PDF"))
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health probe must bypass the limiter, got %d", health.Code)
	}
}

func TestMetricsEndpointExposesHTTPSeries(t *testing.T) {
	handler := newTestRouter(t, testConfig(t), &routerFake{})
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "docroute_http_requests_total") {
		t.Fatalf("expected http request counter in metrics output")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/route", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, httptest.NewRequest(http.MethodPost, "/v1/route", nil))
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}
