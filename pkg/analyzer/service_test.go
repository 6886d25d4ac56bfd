package analyzer

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

type fakeClient struct {
	reply   string
	err     error
	prompts []string
	images  []string
}

func (f *fakeClient) Name() string                   { return "fake" }
func (f *fakeClient) Ping(ctx context.Context) error { return f.err }

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, imgB64)
	return f.reply, f.err
}

func dataURL(t *testing.T, img image.Image) (string, string) {
	t.Helper()
	payload := base64.StdEncoding.EncodeToString(encodeJPEG(t, img))
	return "data:image/jpeg;base64," + payload, payload
}

func TestServiceAnalyze(t *testing.T) {
	fc := &fakeClient{reply: "Fixed:\n```jsx\nconst Card = () => null;\n```"}
	svc := NewService(fc, "vision-model", nil)
	url, payload := dataURL(t, createTestImage(120, 80))

	res, err := svc.Analyze(context.Background(), Request{
		Image: url,
		Code:  "function Card() { return <div style={{}}/> }",
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if res.FixedCode != "const Card = () => null;" {
		t.Errorf("Unexpected fixed code %q", res.FixedCode)
	}
	if res.FullResponse != fc.reply {
		t.Errorf("Full response should be the model reply")
	}
	if res.AnalysisType != AnalysisUIFix {
		t.Errorf("Expected default ui_fix, got %s", res.AnalysisType)
	}
	if len(res.Analysis.Components) != 1 || res.Analysis.Components[0] != "Card" {
		t.Errorf("Unexpected analysis %+v", res.Analysis)
	}
	if fc.images[0] != payload {
		t.Error("Image must be forwarded unchanged")
	}
	if !strings.Contains(fc.prompts[0], "Components found: Card") {
		t.Errorf("Prompt should carry the code analysis")
	}
}

func TestServiceAnalyzeOptions(t *testing.T) {
	fc := &fakeClient{reply: "ok"}
	svc := NewService(fc, "m", nil)
	url, _ := dataURL(t, createTestImage(20, 20))
	no := false

	res, err := svc.Analyze(context.Background(), Request{
		Image: url,
		Code:  "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.FixedCode != "ok" {
		t.Errorf("Reply without fences should be returned as is, got %q", res.FixedCode)
	}

	res, err = svc.Analyze(context.Background(), Request{
		Image: url,
		Options: types.AnalysisOptions{AnalysisType: AnalysisFigmaToCode, IncludeExplanation: &no},
	})
	if err != nil {
		t.Fatalf("Figma analysis without code should succeed: %v", err)
	}
	if res.AnalysisType != AnalysisFigmaToCode {
		t.Errorf("Expected figma_to_code, got %s", res.AnalysisType)
	}
	if !strings.HasSuffix(fc.prompts[len(fc.prompts)-1], "Do not include an explanation.") {
		t.Error("Expected code-only prompt")
	}
}

func TestServiceAnalyzeInvalid(t *testing.T) {
	fc := &fakeClient{reply: "ok"}
	svc := NewService(fc, "m", nil)
	url, _ := dataURL(t, createTestImage(20, 20))

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"missing code", Request{Image: url}, ErrInvalidRequest},
		{"not a data url", Request{Image: "http://x/y.jpg", Code: "x"}, ErrInvalidRequest},
		{"bad base64", Request{Image: "data:image/png;base64,%%%", Code: "x"}, ErrInvalidRequest},
		{"not an image", Request{Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("text")), Code: "x"}, ErrInvalidImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Analyze(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(fc.prompts) != 0 {
		t.Error("Backend must not be called for invalid requests")
	}
}

func TestServiceBackendError(t *testing.T) {
	svc := NewService(&fakeClient{err: errors.New("connection refused")}, "m", nil)
	url, _ := dataURL(t, createTestImage(20, 20))

	if _, err := svc.Analyze(context.Background(), Request{Image: url, Code: "x"}); !errors.Is(err, ErrBackend) {
		t.Errorf("Expected ErrBackend, got %v", err)
	}
}

func TestServiceDesignTokens(t *testing.T) {
	fc := &fakeClient{reply: `{"colors": ["#123456"], "spacing": ["4px"]}`}
	svc := NewService(fc, "m", nil)
	url, _ := dataURL(t, createTestImage(20, 20))

	tokens, err := svc.DesignTokens(context.Background(), url)
	if err != nil {
		t.Fatalf("DesignTokens failed: %v", err)
	}
	if len(tokens.Colors) != 1 || tokens.Colors[0] != "#123456" {
		t.Errorf("Unexpected colors %v", tokens.Colors)
	}
	if fc.prompts[0] != DesignTokensPrompt {
		t.Error("Expected design tokens prompt")
	}
}

func TestServiceDesignTokensColorFallback(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}
	svc := NewService(&fakeClient{reply: "no idea"}, "m", nil)
	url, _ := dataURL(t, img)

	tokens, err := svc.DesignTokens(context.Background(), url)
	if err != nil {
		t.Fatalf("DesignTokens failed: %v", err)
	}
	if len(tokens.Colors) != 1 || tokens.Colors[0] != "#000000" {
		t.Errorf("Expected dominant black, got %v", tokens.Colors)
	}
}

func TestServiceDescribe(t *testing.T) {
	fc := &fakeClient{reply: "  1. a login form\n2. an error toast \n"}
	svc := NewService(fc, "m", nil)
	url, payload := dataURL(t, createTestImage(20, 40))

	desc, err := svc.Describe(context.Background(), url, 2)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if desc != "1. a login form\n2. an error toast" {
		t.Errorf("Unexpected description %q", desc)
	}
	if !strings.HasPrefix(fc.prompts[0], "This image is 2 screenshots") {
		t.Errorf("Prompt should carry the part count, got %q", fc.prompts[0])
	}
	if fc.images[0] != payload {
		t.Error("Image must be forwarded unchanged")
	}

	if _, err := svc.Describe(context.Background(), "not a data url", 1); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}

	fc.err = errors.New("down")
	if _, err := svc.Describe(context.Background(), url, 0); !errors.Is(err, ErrBackend) {
		t.Errorf("Expected ErrBackend, got %v", err)
	}
	if !strings.HasPrefix(fc.prompts[len(fc.prompts)-1], "This image is 1 screenshots") {
		t.Error("Part count below one should be reported as one")
	}
}
