package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/menta2k/multishot-scanner/internal/utils"
	"github.com/menta2k/multishot-scanner/pkg/client"
	"github.com/menta2k/multishot-scanner/pkg/types"
)

var (
	// ErrInvalidRequest is returned when required request fields are missing
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBackend wraps failures of the vision backend
	ErrBackend = errors.New("analysis backend failed")
)

// Request is one analysis submission
type Request struct {
	Image   string // image data URL
	Code    string
	Options types.AnalysisOptions
}

// Service analyzes screenshots plus component source with a vision model
type Service struct {
	client    client.VisionClient
	model     string
	validator *ImageAnalyzer
	logger    *slog.Logger
}

// NewService creates an analysis service with default image limits
func NewService(c client.VisionClient, model string, logger *slog.Logger) *Service {
	return NewServiceWithConfig(c, model, New(), logger)
}

// NewServiceWithConfig creates an analysis service with custom image limits
func NewServiceWithConfig(c client.VisionClient, model string, validator *ImageAnalyzer, logger *slog.Logger) *Service {
	if validator == nil {
		validator = New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: c, model: model, validator: validator, logger: logger}
}

// Backend returns the name of the vision backend
func (s *Service) Backend() string {
	return s.client.Name()
}

// Ping checks that the vision backend is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Analyze runs code analysis, builds the prompt for the requested analysis
// type and sends it with the image to the vision model. The image is
// forwarded as submitted.
func (s *Service) Analyze(ctx context.Context, req Request) (*types.UIAnalysis, error) {
	analysisType := req.Options.AnalysisType
	if strings.TrimSpace(req.Code) == "" && analysisType != AnalysisFigmaToCode {
		return nil, fmt.Errorf("%w: missing code", ErrInvalidRequest)
	}

	payload, info, err := s.decodeImage(req.Image)
	if err != nil {
		return nil, err
	}

	codeAnalysis := AnalyzeCode(req.Code)
	includeExplanation := req.Options.IncludeExplanation == nil || *req.Options.IncludeExplanation
	prompt, analysisType := BuildPrompt(analysisType, req.Code, codeAnalysis, includeExplanation)

	s.logger.Info("analyzing composite",
		"backend", s.client.Name(),
		"model", s.model,
		"type", analysisType,
		"image", fmt.Sprintf("%dx%d %s", info.Width, info.Height, info.Format),
		"size", utils.FormatFileSize(info.Size),
		"components", len(codeAnalysis.Components))

	reply, err := s.client.SimpleQuery(ctx, s.model, prompt, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	return &types.UIAnalysis{
		FixedCode:    ExtractCode(reply),
		FullResponse: reply,
		Analysis:     codeAnalysis,
		AnalysisType: analysisType,
	}, nil
}

// DesignTokens extracts a design system from a screenshot. When the model
// returns no colors, the dominant colors of the image are used instead.
func (s *Service) DesignTokens(ctx context.Context, imageDataURL string) (*types.DesignTokens, error) {
	payload, _, err := s.decodeImage(imageDataURL)
	if err != nil {
		return nil, err
	}

	reply, err := s.client.SimpleQuery(ctx, s.model, DesignTokensPrompt, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	tokens := ParseDesignTokens(reply)
	if len(tokens.Colors) == 0 {
		data, _ := utils.DecodeDataURL(payload)
		if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			tokens.Colors = DominantColors(img, 5)
		} else {
			s.logger.Debug("dominant color fallback skipped", "error", err)
		}
	}
	return tokens, nil
}

// Describe asks the model for a short description of a composite made of
// parts captures. It is a quick check that the backend can see the image.
func (s *Service) Describe(ctx context.Context, imageDataURL string, parts int) (string, error) {
	payload, info, err := s.decodeImage(imageDataURL)
	if err != nil {
		return "", err
	}
	if parts < 1 {
		parts = 1
	}

	s.logger.Debug("describing composite", "backend", s.client.Name(), "parts", parts, "size", utils.FormatFileSize(info.Size))
	reply, err := s.client.SimpleQuery(ctx, s.model, fmt.Sprintf(DescribePrompt, parts), payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return strings.TrimSpace(reply), nil
}

// decodeImage validates an image data URL and returns its base64 payload
func (s *Service) decodeImage(dataURL string) (string, ImageInfo, error) {
	if !utils.IsImageDataURL(dataURL) {
		return "", ImageInfo{}, fmt.Errorf("%w: invalid image format", ErrInvalidRequest)
	}
	i := strings.Index(dataURL, ",")
	if i < 0 {
		return "", ImageInfo{}, fmt.Errorf("%w: malformed data URL", ErrInvalidRequest)
	}
	payload := dataURL[i+1:]

	data, err := utils.DecodeDataURL(payload)
	if err != nil {
		return "", ImageInfo{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	info, err := s.validator.ValidateImage(data)
	if err != nil {
		return "", info, err
	}
	return payload, info, nil
}
