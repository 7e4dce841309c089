// Package server exposes the barcode pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

// decoder is the part of the pipeline the server needs.
type decoder interface {
	DecodeImage(ctx context.Context, img image.Image) (*pipeline.Result, error)
	DecodeRay(ctx context.Context, img image.Image, p1, p2 utils.Point) (*pipeline.Result, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	decoder         decoder
	corsOrigin      string
	maxUploadMB     int64
	timeout         time.Duration
	shutdownTimeout time.Duration
	overlayEnabled  bool
	overlay         pipeline.OverlayOptions
	rateLimiter     *RateLimiter
	addr            string
}

// RateLimitConfig enables per-client request limits. Zero limits are off.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout time.Duration
	OverlayEnabled  bool
	OverlayOptions  pipeline.OverlayOptions
	RateLimit       RateLimitConfig
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// DecodeResponse wraps a decode outcome for JSON clients.
type DecodeResponse struct {
	Success  bool               `json:"success"`
	Result   *pipeline.Result   `json:"result,omitempty"`
	Attempts []pipeline.Attempt `json:"attempts,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// NewServer creates a server decoding with pl.
func NewServer(config Config, pl *pipeline.Pipeline) (*Server, error) {
	if pl == nil {
		return nil, errors.New("nil pipeline")
	}
	return newServer(config, pl), nil
}

func newServer(config Config, d decoder) *Server {
	s := &Server{
		decoder:         d,
		corsOrigin:      config.CORSOrigin,
		maxUploadMB:     config.MaxUploadMB,
		timeout:         time.Duration(config.TimeoutSec) * time.Second,
		shutdownTimeout: config.ShutdownTimeout,
		overlayEnabled:  config.OverlayEnabled,
		overlay:         config.OverlayOptions,
		addr:            net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 10
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}
	if s.overlay.RegionColor == nil || s.overlay.RayColor == nil {
		s.overlay = pipeline.DefaultOverlayOptions()
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/decode", s.corsMiddleware(s.rateLimitMiddleware(s.decodeHandler)))
	mux.HandleFunc("/ws/decode", s.rateLimitMiddleware(s.decodeWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.addr }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
