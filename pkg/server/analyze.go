package server

import (
	"net/http"
	"strings"

	"github.com/menta2k/multishot-scanner/pkg/analyzer"
	"github.com/menta2k/multishot-scanner/pkg/types"
)

type analyzeRequest struct {
	Image      string                `json:"image"`
	Text       string                `json:"text"`
	ReactCode  string                `json:"reactCode"`
	Timestamp  string                `json:"timestamp"`
	ImageCount int                   `json:"imageCount"`
	Options    types.AnalysisOptions `json:"options"`
}

// code returns the component source, accepting both field names in use
func (r analyzeRequest) code() string {
	if strings.TrimSpace(r.ReactCode) != "" {
		return r.ReactCode
	}
	return r.Text
}

type analyzeResponse struct {
	Success    bool              `json:"success"`
	Result     *types.UIAnalysis `json:"result"`
	Timestamp  float64           `json:"timestamp"`
	ImageCount int               `json:"imageCount"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		s.logger.Warn("rate limit exceeded", "client", clientIP(r))
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}
	if s.analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis backend not configured")
		return
	}

	var req analyzeRequest
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: image and text")
		return
	}
	if !strings.HasPrefix(req.Image, "data:image") {
		writeError(w, http.StatusBadRequest, "Invalid image format")
		return
	}

	result, err := s.analysis.Analyze(r.Context(), analyzer.Request{
		Image:   req.Image,
		Code:    req.code(),
		Options: req.Options,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	count := req.ImageCount
	if count < 1 {
		count = 1
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Success:    true,
		Result:     result,
		Timestamp:  unixSeconds(s.now()),
		ImageCount: count,
	})
}

func (s *Server) handleDesignTokens(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}
	if s.analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis backend not configured")
		return
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}

	tokens, err := s.analysis.DesignTokens(r.Context(), req.Image)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"result":    tokens,
		"timestamp": unixSeconds(s.now()),
	})
}
