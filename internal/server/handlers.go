package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/utils"
	"github.com/MeKo-Tech/eanscan/internal/version"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeRequest is a parsed /decode upload.
type decodeRequest struct {
	img     image.Image
	ray     *[2]utils.Point // manual ray, nil for autonomous mode
	format  string
	overlay bool
}

// decodeHandler decodes the barcode in an uploaded image.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, status, err := s.parseDecodeRequest(w, r)
	if err != nil {
		decodeRequestsTotal.WithLabelValues("http", "bad_request").Inc()
		s.writeErrorResponse(w, err.Error(), status)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.decode(ctx, "http", req.img, req.ray)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	switch {
	case req.overlay:
		s.writeOverlay(w, req.img, res)
	case req.format == formatText:
		text, err := pipeline.ToText(res)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, text+"\n")
	default:
		writeJSON(w, http.StatusOK, DecodeResponse{Success: true, Result: res})
	}
}

// decode runs the pipeline and records metrics under source.
func (s *Server) decode(ctx context.Context, source string, img image.Image, manual *[2]utils.Point) (*pipeline.Result, error) {
	start := time.Now()
	var (
		res *pipeline.Result
		err error
	)
	if manual != nil {
		res, err = s.decoder.DecodeRay(ctx, img, manual[0], manual[1])
	} else {
		res, err = s.decoder.DecodeImage(ctx, img)
	}
	decodeDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	var nde *pipeline.NoDecodeError
	switch {
	case err == nil:
		decodeRequestsTotal.WithLabelValues(source, "decoded").Inc()
		decodeAttempts.WithLabelValues(source).Observe(float64(len(res.Attempts)))
		slog.Debug("Decoded upload", "code", res.Code, "attempts", len(res.Attempts), "duration", time.Since(start))
	case errors.As(err, &nde):
		decodeRequestsTotal.WithLabelValues(source, "not_found").Inc()
		decodeAttempts.WithLabelValues(source).Observe(float64(len(nde.Attempts)))
	case pipeline.IsNotFound(err):
		decodeRequestsTotal.WithLabelValues(source, "not_found").Inc()
	default:
		decodeRequestsTotal.WithLabelValues(source, "error").Inc()
	}
	return res, err
}

func (s *Server) parseDecodeRequest(w http.ResponseWriter, r *http.Request) (*decodeRequest, int, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			return nil, http.StatusRequestEntityTooLarge, errors.New("file too large")
		}
		return nil, http.StatusBadRequest, errors.New("failed to parse form data")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("no image file provided")
	}
	defer func() { _ = file.Close() }()
	if header.Size > limit {
		return nil, http.StatusRequestEntityTooLarge, errors.New("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to read image data")
	}
	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid image format")
	}

	req := &decodeRequest{img: img}
	req.format = strings.ToLower(r.FormValue("format"))
	if req.format == "" {
		req.format = strings.ToLower(r.URL.Query().Get("format"))
	}
	if req.format != "" && req.format != formatJSON && req.format != formatText {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported format %q", req.format)
	}
	if v := r.FormValue("overlay"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid overlay value %q", v)
		}
		if on && !s.overlayEnabled {
			return nil, http.StatusForbidden, errors.New("overlay output disabled")
		}
		req.overlay = on
	}

	manual, err := parseRayFields(r.FormValue)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	req.ray = manual
	return req, http.StatusOK, nil
}

// parseRayFields reads x1,y1,x2,y2. All four or none must be present.
func parseRayFields(get func(string) string) (*[2]utils.Point, error) {
	names := [4]string{"x1", "y1", "x2", "y2"}
	var vals [4]float64
	present := 0
	for i, name := range names {
		raw := strings.TrimSpace(get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", name, raw)
		}
		vals[i] = v
		present++
	}
	switch present {
	case 0:
		return nil, nil
	case 4:
		return &[2]utils.Point{{X: vals[0], Y: vals[1]}, {X: vals[2], Y: vals[3]}}, nil
	default:
		return nil, errors.New("manual ray needs all of x1, y1, x2, y2")
	}
}

func (s *Server) writeOverlay(w http.ResponseWriter, img image.Image, res *pipeline.Result) {
	ov := pipeline.RenderOverlay(img, res, s.overlay)
	if ov == nil {
		s.writeErrorResponse(w, "overlay failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, ov); err != nil {
		slog.Error("Failed to encode overlay", "error", err)
	}
}

// writeDecodeError maps pipeline errors onto status codes.
func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	var nde *pipeline.NoDecodeError
	switch {
	case errors.As(err, &nde):
		writeJSON(w, http.StatusUnprocessableEntity, DecodeResponse{Error: err.Error(), Attempts: nde.Attempts})
	case pipeline.IsNotFound(err):
		writeJSON(w, http.StatusUnprocessableEntity, DecodeResponse{Error: err.Error()})
	case errors.Is(err, pipeline.ErrInvalidRay):
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, "decode timed out", http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		s.writeErrorResponse(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		var ipe *utils.ImageProcessingError
		if errors.As(err, &ipe) {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Decode failed", "error", err)
		s.writeErrorResponse(w, fmt.Sprintf("decode failed: %v", err), http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, DecodeResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
