// Package intake hosts the HTTP surface that accepts submissions into the
// file queue and reports service status, queue depth, and metrics.
package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doveops/dovescraper/internal/config"
	"github.com/doveops/dovescraper/internal/metrics"
	"github.com/doveops/dovescraper/internal/queue"
	"github.com/doveops/dovescraper/internal/scraper"
)

// WindowState reports whether the processing window is currently open. The
// intake response tells the caller whether their submission runs now or waits.
type WindowState interface {
	Active() bool
}

// Server wires the intake routes onto the file queue.
type Server struct {
	router chi.Router
	queue  *queue.Queue
	window WindowState
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and the configured routes.
func NewServer(q *queue.Queue, window WindowState, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		queue:  q,
		window: window,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Post(cfg.Endpoints.Service, s.submit)
	r.Get(cfg.Endpoints.Status, s.status)
	r.Get(cfg.Endpoints.Ping, s.ping)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type responseBody struct {
	Code    int          `json:"code"`
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    *failureData `json:"data,omitempty"`
}

type failureData struct {
	Missing []string        `json:"missing,omitempty"`
	Failed  []RecordFailure `json:"failed,omitempty"`
}

// submit validates and queues one submission. Validation failures are
// collected across all records before rejecting, so the caller gets the full
// picture in one response.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var sub scraper.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		sub = scraper.Submission{}
	}

	var absent []string
	if sub.CaseNumber == "" {
		absent = append(absent, "CaseNumber")
	}
	if len(sub.MemberData) == 0 {
		absent = append(absent, "MemberData")
	}
	if len(absent) > 0 {
		s.writeFailure(w, r, &failureData{Missing: absent})
		return
	}

	if failed := ValidateRecords(sub.MemberData); len(failed) > 0 {
		s.writeFailure(w, r, &failureData{Failed: failed})
		return
	}

	path, err := s.queue.Put(sub)
	if err != nil {
		s.logger.Error("queue write failed", zap.String("case", sub.CaseNumber), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, responseBody{
			Code:    http.StatusInternalServerError,
			Status:  "failure",
			Message: "Your request could not be queued.",
		})
		return
	}
	metrics.SetQueueDepth(s.queue.Depth())

	when := "shortly"
	if !s.window.Active() {
		when = "when the processing window next opens"
	}
	s.logger.Info("submission queued",
		zap.String("case", sub.CaseNumber),
		zap.String("file", path),
		zap.Int("records", len(sub.MemberData)),
	)
	writeJSON(w, http.StatusOK, responseBody{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Your request was accepted and will be processed " + when + ".",
	})
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, data *failureData) {
	body := responseBody{
		Code:    http.StatusBadRequest,
		Status:  "failure",
		Message: "Not all required fields found.",
		Data:    data,
	}
	s.logger.Warn("submission rejected",
		zap.String("remote", r.RemoteAddr),
		zap.Strings("missing", data.Missing),
		zap.Int("failed_records", len(data.Failed)),
	)
	writeJSON(w, http.StatusBadRequest, body)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"online": true})
}

// ping reports queue depth with the teapot status the upstream monitor
// expects.
func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	depth := s.queue.Depth()
	metrics.SetQueueDepth(depth)
	writeJSON(w, http.StatusTeapot, map[string]any{
		"message":  "I'm a teapot.",
		"incoming": depth,
	})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))

		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeJSON(w, http.StatusInternalServerError, responseBody{
					Code:    http.StatusInternalServerError,
					Status:  "failure",
					Message: "Internal server error.",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
