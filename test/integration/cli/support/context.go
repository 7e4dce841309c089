package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state for one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastError    error
	LastDuration time.Duration

	// Test environment
	TempDir  string
	prevDir  string
	prevEnv  map[string]*string
	lastFile string

	// HTTP state
	HTTPTestServer     *HTTPTestServerWrapper
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scenario workspace and makes it the working
// directory so no config file outside of it is picked up.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "eanscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	ctx := &TestContext{
		TempDir: tempDir,
		prevDir: prev,
		prevEnv: map[string]*string{},
	}
	ctx.setEnv("HOME", tempDir)
	ctx.setEnv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg"))
	if err := os.Chdir(tempDir); err != nil {
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}
	return ctx, nil
}

// setEnv sets an environment variable and remembers the old value.
func (testCtx *TestContext) setEnv(name, value string) {
	if _, seen := testCtx.prevEnv[name]; !seen {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.prevEnv[name] = &old
		} else {
			testCtx.prevEnv[name] = nil
		}
	}
	_ = os.Setenv(name, value)
}

// Path resolves a scenario-relative file name.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substitute replaces {dir} with the scenario workspace.
func (testCtx *TestContext) substitute(s string) string {
	return strings.ReplaceAll(s, "{dir}", testCtx.TempDir)
}

// Cleanup restores the process state and removes the workspace.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if testCtx.HTTPTestServer != nil {
		testCtx.stopTestHTTPServer()
	}
	if err := os.Chdir(testCtx.prevDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	for name, old := range testCtx.prevEnv {
		if old == nil {
			_ = os.Unsetenv(name)
		} else {
			_ = os.Setenv(name, *old)
		}
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}
