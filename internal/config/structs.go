//nolint:lll
package config

// Config represents the complete configuration of eanscan. It is shared by
// all commands (decode, batch, serve) and can be loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Segment SegmentConfig `mapstructure:"segment" yaml:"segment" json:"segment"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract" json:"extract"`
	Decode  DecodeConfig  `mapstructure:"decode" yaml:"decode" json:"decode"`
	Lookup  LookupConfig  `mapstructure:"lookup" yaml:"lookup" json:"lookup"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// SegmentConfig contains the structure-tensor segmentation settings.
type SegmentConfig struct {
	NoiseSigma         float64 `mapstructure:"noise_sigma" yaml:"noise_sigma" json:"noise_sigma"`
	GradientSigma      float64 `mapstructure:"gradient_sigma" yaml:"gradient_sigma" json:"gradient_sigma"`
	TensorSigma        float64 `mapstructure:"tensor_sigma" yaml:"tensor_sigma" json:"tensor_sigma"`
	CoherenceThreshold float64 `mapstructure:"coherence_threshold" yaml:"coherence_threshold" json:"coherence_threshold"`
	CloseSize          int     `mapstructure:"close_size" yaml:"close_size" json:"close_size"`
	OpenSize           int     `mapstructure:"open_size" yaml:"open_size" json:"open_size"`
	RegionMode         string  `mapstructure:"region_mode" yaml:"region_mode" json:"region_mode"`
	MaxDimension       int     `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
}

// ExtractConfig contains signature extraction settings.
type ExtractConfig struct {
	Polarity string `mapstructure:"polarity" yaml:"polarity" json:"polarity"`
}

// DecodeConfig contains the retry loop settings.
type DecodeConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	Strategy    string `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	Seed        uint64 `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// LookupConfig points at the known-product list or database.
type LookupConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	File         string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
	RayColor     string `mapstructure:"ray_color" yaml:"ray_color" json:"ray_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	OverlayEnabled  bool            `mapstructure:"overlay_enabled" yaml:"overlay_enabled" json:"overlay_enabled"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
