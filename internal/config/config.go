package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/ray"
	"github.com/MeKo-Tech/eanscan/internal/segment"
	"github.com/MeKo-Tech/eanscan/internal/signature"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "csv"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	seg := segment.DefaultConfig()
	return Config{
		LogLevel: "info",
		Segment: SegmentConfig{
			NoiseSigma:         seg.NoiseSigma,
			GradientSigma:      seg.GradientSigma,
			TensorSigma:        seg.TensorSigma,
			CoherenceThreshold: seg.CoherenceThreshold,
			CloseSize:          seg.CloseSize,
			OpenSize:           seg.OpenSize,
			RegionMode:         string(seg.Mode),
		},
		Extract: ExtractConfig{Polarity: string(signature.DarkBars)},
		Decode: DecodeConfig{
			MaxAttempts: pipeline.DefaultMaxAttempts,
			Strategy:    string(ray.StrategyDiameter),
		},
		Output: OutputConfig{
			Format:       "text",
			OverlayColor: "#ff0000",
			RayColor:     "#00ff00",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Batch: BatchConfig{
			Workers:         runtime.NumCPU(),
			ContinueOnError: true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if _, err := pipeline.ParseOverlayOptions(c.Output.OverlayColor, c.Output.RayColor); err != nil {
		return fmt.Errorf("invalid output colors: %w", err)
	}

	if err := c.toSegmentConfig().Validate(); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	if c.Segment.MaxDimension < 0 {
		return fmt.Errorf("invalid segment.max_dimension: %d (must be >= 0)", c.Segment.MaxDimension)
	}
	if _, err := signature.ParsePolarity(c.Extract.Polarity); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if _, err := ray.ParseStrategy(c.Decode.Strategy); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if c.Decode.MaxAttempts <= 0 {
		return fmt.Errorf("invalid decode.max_attempts: %d (must be positive)", c.Decode.MaxAttempts)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.RequestsPerMinute <= 0 || rl.RequestsPerHour <= 0) {
		return fmt.Errorf("invalid rate limit: %d/min %d/h (must be positive)", rl.RequestsPerMinute, rl.RequestsPerHour)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Segment = c.toSegmentConfig()
	cfg.Polarity = signature.Polarity(c.Extract.Polarity)
	cfg.Strategy = ray.Strategy(c.Decode.Strategy)
	cfg.MaxAttempts = c.Decode.MaxAttempts
	cfg.Seed = c.Decode.Seed
	cfg.MaxDimension = c.Segment.MaxDimension
	if c.Batch.Workers > 0 {
		cfg.Parallel.MaxWorkers = c.Batch.Workers
	}
	return cfg
}

func (c *Config) toSegmentConfig() segment.Config {
	return segment.Config{
		NoiseSigma:         c.Segment.NoiseSigma,
		GradientSigma:      c.Segment.GradientSigma,
		TensorSigma:        c.Segment.TensorSigma,
		CoherenceThreshold: c.Segment.CoherenceThreshold,
		CloseSize:          c.Segment.CloseSize,
		OpenSize:           c.Segment.OpenSize,
		Mode:               segment.RegionMode(c.Segment.RegionMode),
	}
}
