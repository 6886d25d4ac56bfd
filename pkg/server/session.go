package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/menta2k/multishot-scanner/internal/utils"
	"github.com/menta2k/multishot-scanner/pkg/analyzer"
	"github.com/menta2k/multishot-scanner/pkg/capture"
	"github.com/menta2k/multishot-scanner/pkg/cropper"
	"github.com/menta2k/multishot-scanner/pkg/types"
)

type captureView struct {
	Index        int               `json:"index"`
	ID           string            `json:"id"`
	CapturedAt   time.Time         `json:"capturedAt"`
	Cropped      bool              `json:"cropped"`
	CropGeometry *types.SourceRect `json:"cropGeometry,omitempty"`
	Size         string            `json:"size"`
}

func viewOf(index int, r capture.Record) captureView {
	return captureView{
		Index:        index,
		ID:           r.ID,
		CapturedAt:   r.CapturedAt,
		Cropped:      r.IsCropped(),
		CropGeometry: r.CropGeometry,
		Size:         humanize.Bytes(uint64(len(r.Current()))),
	}
}

func (s *Server) captureList() map[string]any {
	records := s.scanner.Records()
	views := make([]captureView, len(records))
	for i, r := range records {
		views[i] = viewOf(i, r)
	}
	return map[string]any{
		"captures": views,
		"controls": s.scanner.Controls(),
	}
}

// handleAddCapture accepts a still as a multipart "image" file, a JSON
// {"image": <data URL>} body or a raw image body.
func (s *Server) handleAddCapture(w http.ResponseWriter, r *http.Request) {
	data, err := s.readImage(w, r)
	if err != nil {
		writeError(w, statusForBody(err), err.Error())
		return
	}

	index, err := s.scanner.AddImage(data)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	rec, err := s.scanner.Record(index)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.logger.Info("capture added", "index", index, "size", humanize.Bytes(uint64(len(data))))
	writeJSON(w, http.StatusCreated, viewOf(index, rec))
}

func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "multipart/form-data":
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("missing image file: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	case mediaType == "application/json":
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		if !utils.IsImageDataURL(req.Image) {
			return nil, fmt.Errorf("image must be a data URL")
		}
		return utils.DecodeDataURL(req.Image)
	default:
		data, err := io.ReadAll(r.Body)
		if err == nil && len(data) == 0 {
			err = fmt.Errorf("empty request body")
		}
		return data, err
	}
}

func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.captureList())
}

func pathIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, fmt.Errorf("%w: index must be an integer", analyzer.ErrInvalidRequest)
	}
	return index, nil
}

// handleCaptureImage serves the current image of a capture, or the original
// with ?variant=original.
func (s *Server) handleCaptureImage(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	rec, err := s.scanner.Record(index)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	data := rec.Current()
	if r.URL.Query().Get("variant") == "original" {
		data = rec.Original
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

func (s *Server) handleRemoveCapture(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.scanner.Remove(index); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.captureList())
}

func (s *Server) handleMoveCapture(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	var req struct {
		Direction int `json:"direction"`
	}
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}
	if req.Direction != -1 && req.Direction != 1 {
		writeError(w, http.StatusBadRequest, "direction must be -1 or 1")
		return
	}

	moved := s.scanner.Move(index, req.Direction)
	list := s.captureList()
	list["moved"] = moved
	writeJSON(w, http.StatusOK, list)
}

type pointerEvent struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type sessionRequest struct {
	Session string `json:"session"`
	Index   int    `json:"index"`
	Name    string `json:"name"`
	pointerEvent
	Events []pointerEvent `json:"events"`
}

func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}
	snap, err := s.scanner.OpenEditor(r.Context(), req.Index)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEditorState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.scanner.Editor().Active()
	if !ok {
		s.writeFailure(w, cropper.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancelEditor(w http.ResponseWriter, r *http.Request) {
	if err := s.scanner.CancelCrop(r.URL.Query().Get("session")); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEditorEvents applies one event, or each of "events" in order
func (s *Server) handleEditorEvents(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}

	events := req.Events
	if len(events) == 0 {
		events = []pointerEvent{req.pointerEvent}
	}

	var snap cropper.Snapshot
	for _, e := range events {
		kind, err := cropper.ParseEventKind(e.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snap, err = s.scanner.HandlePointer(req.Session, cropper.PointerEvent{Kind: kind, X: e.X, Y: e.Y})
		if err != nil {
			s.writeFailure(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEditorPreset(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}
	snap, err := s.scanner.ApplyPreset(req.Session, req.Name)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEditorAuto(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}
	snap, err := s.scanner.AutoCrop(req.Session)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEditorConfirm(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}
	geometry, err := s.scanner.ConfirmCrop(r.Context(), req.Session)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	list := s.captureList()
	list["geometry"] = geometry
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleEditorPreview(w http.ResponseWriter, r *http.Request) {
	img, err := s.scanner.Editor().Preview(r.URL.Query().Get("session"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cropper.Presets())
}

func (s *Server) handleStitch(w http.ResponseWriter, r *http.Request) {
	composite, err := s.scanner.Stitch(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	b := composite.Bounds()
	writeJSON(w, http.StatusOK, map[string]any{
		"width":      b.Dx(),
		"height":     b.Dy(),
		"imageCount": s.scanner.Len(),
		"controls":   s.scanner.Controls(),
	})
}

func (s *Server) handleCompositeImage(w http.ResponseWriter, r *http.Request) {
	composite, _, ok := s.scanner.Composite()
	if !ok {
		writeError(w, http.StatusNotFound, "no composite image")
		return
	}
	p := s.scanner.Processor()
	data, err := p.Encode(composite)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", utils.MIMEType(p.Format()))
	w.Write(data)
}

// handleSubmit sends the composite with the user's text to the configured
// analysis endpoint and relays the response.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := s.readJSON(w, r, &req); err != nil {
		writeError(w, statusForBody(err), "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := s.scanner.Submit(r.Context(), req.Text)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statusCode": result.StatusCode,
		"response":   result.Raw,
		"pretty":     result.Pretty,
	})
}

func (s *Server) handleControls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scanner.Controls())
}
