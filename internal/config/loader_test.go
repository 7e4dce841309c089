package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// inDir runs the test from a fresh directory so no eanscan.yaml is picked up.
func inDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inDir(t)
	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Decode, cfg.Decode)
	assert.Equal(t, DefaultConfig().Segment, cfg.Segment)
}

func TestLoad_Environment(t *testing.T) {
	inDir(t)
	t.Setenv("EANSCAN_DECODE_MAX_ATTEMPTS", "7")
	t.Setenv("EANSCAN_DECODE_SEED", "42")
	t.Setenv("EANSCAN_SEGMENT_REGION_MODE", "bbox")
	t.Setenv("EANSCAN_SERVER_RATE_LIMIT_ENABLED", "true")

	cfg, err := NewLoaderWith(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Decode.MaxAttempts)
	assert.Equal(t, uint64(42), cfg.Decode.Seed)
	assert.Equal(t, "bbox", cfg.Segment.RegionMode)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestLoad_SearchPathFile(t *testing.T) {
	dir := inDir(t)
	content := "decode:\n  strategy: scanline\nserver:\n  port: 9090\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eanscan.yaml"), []byte(content), 0o600))

	l := NewLoaderWith(viper.New())
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "scanline", cfg.Decode.Strategy)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Decode.MaxAttempts)
	assert.Contains(t, l.GetConfigFileUsed(), "eanscan.yaml")
}

func TestLoadWithFile(t *testing.T) {
	dir := inDir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nextract:\n  polarity: light-bars\n"), 0o600))

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "light-bars", cfg.Extract.Polarity)

	_, err = NewLoaderWith(viper.New()).LoadWithFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoad_ValidationToggle(t *testing.T) {
	dir := inDir(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decode:\n  max_attempts: 0\n"), 0o600))

	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := NewLoaderWith(viper.New()).LoadWithFileWithoutValidation(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Decode.MaxAttempts)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := inDir(t)
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decode: [unclosed\n"), 0o600))

	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	dir := inDir(t)
	path := filepath.Join(dir, "eanscan.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed Config
	require.NoError(t, yaml.Unmarshal(raw, &parsed))
	assert.Equal(t, DefaultConfig().Segment, parsed.Segment)
	assert.Equal(t, DefaultConfig().Server, parsed.Server)

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Decode, cfg.Decode)
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := inDir(t)
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, "/etc/eanscan")
	assert.Contains(t, paths, filepath.Join(dir, "eanscan"))
}
