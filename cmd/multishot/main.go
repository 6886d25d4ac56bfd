package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/multishot-scanner"
	"github.com/menta2k/multishot-scanner/internal/config"
	"github.com/menta2k/multishot-scanner/internal/utils"
	"github.com/menta2k/multishot-scanner/pkg/analyzer"
	"github.com/menta2k/multishot-scanner/pkg/camera"
	"github.com/menta2k/multishot-scanner/pkg/client"
)

func main() {
	var in, crops, outDir, cfgPath string
	var ext string
	var quality int
	var lossless bool
	var text, submitURL string
	var analyze bool
	var codePath, analysisType string
	var backend, url, model string
	var tokens, describe, preview, writeCrops bool

	flag.StringVar(&in, "in", "", "comma separated image paths, URLs or directories, in capture order")
	flag.StringVar(&crops, "crop", "", "per-image crop, comma separated: a preset (code|figma|document|full), auto, or none")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")
	flag.StringVar(&cfgPath, "config", "", "config file (json or yaml)")

	flag.StringVar(&ext, "ext", "", "output format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")

	flag.StringVar(&text, "text", "", "text submitted with the composite; submission is skipped when empty")
	flag.StringVar(&submitURL, "submit", "", "analysis endpoint URL (default from config)")

	flag.BoolVar(&analyze, "analyze", false, "analyze the composite with a local vision backend instead of submitting")
	flag.StringVar(&codePath, "code", "", "component source file sent with -analyze")
	flag.StringVar(&analysisType, "type", "ui_fix", "analysis type: ui_fix|code_review|figma_to_code")
	flag.StringVar(&backend, "backend", "", "backend to use: ollama or llamacpp (default from config)")
	flag.StringVar(&url, "url", "", "backend server URL (default from config)")
	flag.StringVar(&model, "model", "", "model name (default from config)")
	flag.BoolVar(&tokens, "tokens", false, "extract design tokens from the composite with the vision backend")
	flag.BoolVar(&describe, "describe", false, "ask the vision backend to describe the composite")

	flag.BoolVar(&preview, "preview", false, "write crop preview overlays")
	flag.BoolVar(&writeCrops, "crops", false, "write every cropped capture")

	flag.Parse()

	inputs := splitList(in)
	inputs = append(inputs, flag.Args()...)
	if len(inputs) == 0 {
		log.Fatalf("usage: %s -in shot1.png,shot2.png [-crop code,auto] [-out outdir] [-text \"question\"] [-analyze -code Card.jsx]", filepath.Base(os.Args[0]))
	}

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	applyFlags(cfg, outDir, ext, quality, lossless, submitURL, backend, url, model)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		log.Fatal(err)
	}

	paths, err := expandInputs(inputs)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	scanner := multishot.NewWithConfig(cfg.ScannerConfig(), nil)

	// Capture every input as a camera frame
	src := camera.NewFileSource(scanner.Processor(), paths...)
	for range paths {
		index, err := scanner.Capture(ctx, src)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("captured #%d", index)
	}

	var cropModes []string
	if crops != "" {
		cropModes = strings.Split(crops, ",")
	}
	for i := range paths {
		mode := "none"
		if i < len(cropModes) {
			mode = cropModes[i]
		}
		if err := cropCapture(ctx, scanner, cfg, i, mode, preview); err != nil {
			log.Fatalf("crop #%d (%s): %v", i, mode, err)
		}
	}

	if writeCrops {
		for i, rec := range scanner.Records() {
			path := utils.GenerateOutputFilename(fmt.Sprintf("%03d", i+1), cfg.Output.Dir, "", "_crop", fileExt(rec.Current()))
			if err := os.WriteFile(path, rec.Current(), 0o644); err != nil {
				log.Printf("save %s failed: %v", path, err)
			} else {
				log.Printf("wrote %s", path)
			}
		}
	}

	composite, err := scanner.Stitch(ctx)
	if err != nil {
		log.Fatal(err)
	}
	compositePath := utils.GenerateOutputFilename("composite", cfg.Output.Dir, "", "", cfg.Output.Format)
	if err := scanner.Processor().SaveImage(composite, compositePath); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%dx%d from %d captures)", compositePath, composite.Bounds().Dx(), composite.Bounds().Dy(), scanner.Len())

	if analyze || tokens || describe {
		svc := newAnalysisService(cfg)
		dataURL, err := scanner.Processor().EncodeDataURL(composite)
		if err != nil {
			log.Fatal(err)
		}
		if analyze {
			runAnalysis(ctx, svc, cfg.Output.Dir, dataURL, codePath, analysisType)
		}
		if tokens {
			runTokens(ctx, svc, cfg.Output.Dir, dataURL)
		}
		if describe {
			desc, err := svc.Describe(ctx, dataURL, scanner.Len())
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(desc)
		}
		return
	}

	if text == "" {
		return
	}
	result, err := scanner.Submit(ctx, text)
	if err != nil {
		log.Fatal(err)
	}
	resultPath := filepath.Join(cfg.Output.Dir, "response.json")
	_ = os.WriteFile(resultPath, []byte(result.Pretty), 0o644)
	log.Printf("status %d, wrote %s", result.StatusCode, resultPath)
	fmt.Println(result.Pretty)
}

func applyFlags(cfg *config.Config, outDir, ext string, quality int, lossless bool, submitURL, backend, url, model string) {
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if ext != "" {
		cfg.Output.Format = strings.ToLower(ext)
	}
	if quality > 0 {
		cfg.Output.Quality = quality
	}
	if lossless {
		cfg.Output.Lossless = true
	}
	if submitURL != "" {
		cfg.Server.SubmitURL = submitURL
	}
	if backend != "" {
		cfg.Backend.Type = backend
	}
	if url != "" {
		cfg.Backend.URL = url
	}
	if model != "" {
		cfg.Backend.Model = model
	}
}

// cropCapture opens the editor on a capture and applies mode
func cropCapture(ctx context.Context, scanner *multishot.Scanner, cfg *config.Config, index int, mode string, preview bool) error {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" || mode == "none" {
		return nil
	}

	snap, err := scanner.OpenEditor(ctx, index)
	if err != nil {
		return err
	}
	if mode == "auto" {
		_, err = scanner.AutoCrop(snap.SessionID)
	} else {
		_, err = scanner.ApplyPreset(snap.SessionID, mode)
	}
	if err != nil {
		scanner.CancelCrop(snap.SessionID)
		return err
	}

	if preview {
		img, err := scanner.Editor().Preview(snap.SessionID)
		if err == nil {
			path := utils.GenerateOutputFilename(fmt.Sprintf("%03d", index+1), cfg.Output.Dir, "", "_preview", "png")
			if data, err := scanner.Processor().EncodeAs(img, "png"); err == nil {
				_ = os.WriteFile(path, data, 0o644)
				log.Printf("wrote %s", path)
			}
		}
	}

	geometry, err := scanner.ConfirmCrop(ctx, snap.SessionID)
	if err != nil {
		return err
	}
	log.Printf("cropped #%d with %s: %.0fx%.0f@%.0f,%.0f", index, mode, geometry.Width, geometry.Height, geometry.X, geometry.Y)
	return nil
}

func newAnalysisService(cfg *config.Config) *analyzer.Service {
	visionClient, err := client.New(cfg.Backend.Type, cfg.Backend.URL)
	if err != nil {
		log.Fatalf("Failed to create %s client: %v", cfg.Backend.Type, err)
	}
	return analyzer.NewServiceWithConfig(visionClient, cfg.Backend.Model, analyzer.NewWithConfig(cfg.ImageLimits()), nil)
}

func runAnalysis(ctx context.Context, svc *analyzer.Service, outDir, dataURL, codePath, analysisType string) {
	var code string
	if codePath != "" {
		data, err := os.ReadFile(codePath)
		if err != nil {
			log.Fatal(err)
		}
		code = string(data)
	}

	start := time.Now()
	req := analyzer.Request{Image: dataURL, Code: code}
	req.Options.AnalysisType = analysisType
	result, err := svc.Analyze(ctx, req)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%s analysis by %s took %s", result.AnalysisType, svc.Backend(), time.Since(start).Round(time.Millisecond))

	js, _ := json.MarshalIndent(result, "", "  ")
	_ = os.WriteFile(filepath.Join(outDir, "analysis.json"), js, 0o644)
	if result.FixedCode != "" {
		path := filepath.Join(outDir, "fixed.jsx")
		_ = os.WriteFile(path, []byte(result.FixedCode+"\n"), 0o644)
		log.Printf("wrote %s", path)
	}
	fmt.Println(result.FullResponse)
}

func runTokens(ctx context.Context, svc *analyzer.Service, outDir, dataURL string) {
	tokens, err := svc.DesignTokens(ctx, dataURL)
	if err != nil {
		log.Fatal(err)
	}
	js, _ := json.MarshalIndent(tokens, "", "  ")
	path := filepath.Join(outDir, "design_tokens.json")
	_ = os.WriteFile(path, js, 0o644)
	log.Printf("wrote %s (%d colors)", path, len(tokens.Colors))
}

// expandInputs replaces directories by the image files they contain
func expandInputs(inputs []string) ([]string, error) {
	var paths []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil || !info.IsDir() {
			paths = append(paths, in)
			continue
		}
		files, err := utils.ListImageFiles(in)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, errors.New("no images in " + in)
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fileExt guesses the extension of encoded image bytes
func fileExt(data []byte) string {
	switch {
	case len(data) > 8 && string(data[1:4]) == "PNG":
		return "png"
	case len(data) > 12 && string(data[8:12]) == "WEBP":
		return "webp"
	default:
		return "jpg"
	}
}
