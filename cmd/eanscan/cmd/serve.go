package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/eanscan/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the decode API",
		Long: `Start an HTTP server that decodes uploaded images.

The server provides the following endpoints:
  POST /decode     - decode an uploaded image (multipart field "image")
  GET  /ws/decode  - WebSocket decoding, one image per message
  GET  /health     - health check
  GET  /metrics    - Prometheus metrics

Examples:
  eanscan serve
  eanscan serve --port 8080
  eanscan serve --host 0.0.0.0 --port 3000 --rate-limit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, a)
		},
	}

	f := cmd.Flags()
	f.String("host", "localhost", "host to bind")
	f.IntP("port", "p", 8080, "port to listen on")
	f.String("cors-origin", "*", "value of Access-Control-Allow-Origin")
	f.Int("max-upload-mb", 10, "maximum upload size in MB")
	f.Int("timeout", 30, "per-request decode timeout in seconds")
	f.Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	f.Bool("overlay-enable", true, "allow overlay=true PNG responses")
	f.Bool("rate-limit", false, "enable per-client rate limiting")
	f.Int("requests-per-minute", 60, "rate limit per client and minute")
	f.Int("requests-per-hour", 1000, "rate limit per client and hour")
	f.String("lookup", "", "known-code list (.txt) or database (.db)")
	bindFlag(f, "host", "server.host")
	bindFlag(f, "port", "server.port")
	bindFlag(f, "cors-origin", "server.cors_origin")
	bindFlag(f, "max-upload-mb", "server.max_upload_mb")
	bindFlag(f, "timeout", "server.timeout_sec")
	bindFlag(f, "shutdown-timeout", "server.shutdown_timeout")
	bindFlag(f, "overlay-enable", "server.overlay_enabled")
	bindFlag(f, "rate-limit", "server.rate_limit.enabled")
	bindFlag(f, "requests-per-minute", "server.rate_limit.requests_per_minute")
	bindFlag(f, "requests-per-hour", "server.rate_limit.requests_per_hour")
	bindFlag(f, "lookup", "lookup.path")
	return cmd
}

func runServe(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	opts, err := overlayOptions(cfg)
	if err != nil {
		return err
	}
	pl, closeLookup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLookup() }()
	slog.Info("Pipeline ready", "pipeline", pl.Info())

	sc := cfg.Server
	srv, err := server.NewServer(server.Config{
		Host:            sc.Host,
		Port:            sc.Port,
		CORSOrigin:      sc.CORSOrigin,
		MaxUploadMB:     int64(sc.MaxUploadMB),
		TimeoutSec:      sc.TimeoutSec,
		ShutdownTimeout: time.Duration(sc.ShutdownTimeout) * time.Second,
		OverlayEnabled:  sc.OverlayEnabled,
		OverlayOptions:  opts,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimit.Enabled,
			RequestsPerMinute: sc.RateLimit.RequestsPerMinute,
			RequestsPerHour:   sc.RateLimit.RequestsPerHour,
		},
	}, pl)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}
