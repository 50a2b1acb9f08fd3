package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/docroute/internal/config"
	"github.com/kirillkom/docroute/internal/core/ports"
	"github.com/kirillkom/docroute/internal/observability/metrics"
)

const serviceName = "docroute-api"

type Router struct {
	cfg       config.Config
	router    ports.DocumentRouter
	uploads   ports.UploadStore
	metrics   *metrics.HTTPServerMetrics
	gatherers []prometheus.Gatherer
}

func NewRouter(
	cfg config.Config,
	router ports.DocumentRouter,
	uploads ports.UploadStore,
	httpMetrics *metrics.HTTPServerMetrics,
	gatherers ...prometheus.Gatherer,
) *Router {
	if httpMetrics == nil {
		httpMetrics = metrics.NewHTTPServerMetrics(serviceName)
	}
	return &Router{
		cfg:       cfg,
		router:    router,
		uploads:   uploads,
		metrics:   httpMetrics,
		gatherers: gatherers,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/route", backpressureMiddleware(http.HandlerFunc(rt.routeDocument), rt.cfg.APIMaxInFlight, rt.cfg.APIQueueWait))
	mux.Handle("/metrics", rt.metrics.Handler(rt.gatherers...))

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, func(path string) {
		rt.metrics.RecordRateLimited(serviceName, path)
	})
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// routeDocument stores the uploaded PDF in a private temp file, probes it and
// returns the routing decision. The upload is removed afterwards.
func (rt *Router) routeDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.cfg.UploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	path, err := rt.uploads.Save(r.Context(), file)
	if err != nil {
		slog.Error("upload_save_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
		return
	}
	defer func() {
		if err := rt.uploads.Remove(path); err != nil {
			slog.Warn("upload_cleanup_failed", "path", path, "error", err)
		}
	}()

	decision, err := rt.router.Route(r.Context(), path)
	if err != nil {
		slog.Warn("route_failed",
			"request_id", requestIDFromContext(r.Context()),
			"filename", header.Filename,
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// NewServer wraps the handler with the address and timeouts used by `serve`.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
