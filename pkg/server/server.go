// Package server exposes the scanner workflow and the UI analysis service
// over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/multishot-scanner"
	"github.com/menta2k/multishot-scanner/pkg/analyzer"
	"github.com/menta2k/multishot-scanner/pkg/capture"
	"github.com/menta2k/multishot-scanner/pkg/cropper"
	"github.com/menta2k/multishot-scanner/pkg/stitch"
	"github.com/menta2k/multishot-scanner/pkg/submit"
	"github.com/menta2k/multishot-scanner/pkg/vision"
)

// Config holds HTTP server settings
type Config struct {
	StaticDir    string
	CORSOrigins  string
	RateLimit    int
	MaxBodyBytes int64
}

// DefaultConfig returns the standard server settings
func DefaultConfig() Config {
	return Config{
		CORSOrigins:  "*",
		RateLimit:    100,
		MaxBodyBytes: 32 << 20,
	}
}

// Server routes HTTP requests to the scanner and the analysis service
type Server struct {
	scanner  *multishot.Scanner
	analysis *analyzer.Service
	limiter  *RateLimiter
	config   Config
	logger   *slog.Logger
	mux      *http.ServeMux
	handler  http.Handler
	version  string
	now      func() time.Time
}

// New creates a server. analysis may be nil, in which case the analysis
// endpoints answer 503.
func New(scanner *multishot.Scanner, analysis *analyzer.Service, config Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{
		scanner:  scanner,
		analysis: analysis,
		limiter:  NewRateLimiter(config.RateLimit, 0),
		config:   config,
		logger:   logger,
		mux:      http.NewServeMux(),
		version:  multishot.Version,
		now:      time.Now,
	}
	s.routes()
	s.handler = s.logRequests(s.cors(s.mux))
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/design-tokens", s.handleDesignTokens)

	s.mux.HandleFunc("POST /api/captures", s.handleAddCapture)
	s.mux.HandleFunc("GET /api/captures", s.handleListCaptures)
	s.mux.HandleFunc("GET /api/captures/{index}/image", s.handleCaptureImage)
	s.mux.HandleFunc("DELETE /api/captures/{index}", s.handleRemoveCapture)
	s.mux.HandleFunc("POST /api/captures/{index}/move", s.handleMoveCapture)

	s.mux.HandleFunc("POST /api/editor", s.handleOpenEditor)
	s.mux.HandleFunc("GET /api/editor", s.handleEditorState)
	s.mux.HandleFunc("DELETE /api/editor", s.handleCancelEditor)
	s.mux.HandleFunc("POST /api/editor/events", s.handleEditorEvents)
	s.mux.HandleFunc("POST /api/editor/preset", s.handleEditorPreset)
	s.mux.HandleFunc("POST /api/editor/auto", s.handleEditorAuto)
	s.mux.HandleFunc("POST /api/editor/confirm", s.handleEditorConfirm)
	s.mux.HandleFunc("GET /api/editor/preview", s.handleEditorPreview)

	s.mux.HandleFunc("GET /api/presets", s.handlePresets)
	s.mux.HandleFunc("POST /api/stitch", s.handleStitch)
	s.mux.HandleFunc("GET /api/stitch/image", s.handleCompositeImage)
	s.mux.HandleFunc("POST /api/submit", s.handleSubmit)
	s.mux.HandleFunc("GET /api/controls", s.handleControls)

	if s.config.StaticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// Handler returns the routes wrapped with CORS and request logging
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, o := range strings.Split(s.config.CORSOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return "*"
		}
		if o != "" && o == origin {
			return origin
		}
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// readJSON decodes a bounded JSON request body into v
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// writeFailure maps an error to its HTTP status and writes it
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes),
		errors.Is(err, analyzer.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analyzer.ErrInvalidRequest),
		errors.Is(err, analyzer.ErrInvalidImage),
		errors.Is(err, analyzer.ErrUnsupportedFormat),
		errors.Is(err, cropper.ErrUnknownPreset),
		errors.Is(err, submit.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrIndexOutOfRange),
		errors.Is(err, cropper.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, cropper.ErrSessionClosed),
		errors.Is(err, cropper.ErrNotLoaded),
		errors.Is(err, cropper.ErrSourceUnavailable),
		errors.Is(err, stitch.ErrNoImages),
		errors.Is(err, multishot.ErrNoComposite):
		return http.StatusConflict
	case errors.Is(err, cropper.ErrInvalidImage),
		errors.Is(err, cropper.ErrDegenerateRegion),
		errors.Is(err, vision.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, analyzer.ErrBackend),
		errors.Is(err, submit.ErrSubmissionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusForBody maps a request body decode error to 413 or 400
func statusForBody(err error) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
