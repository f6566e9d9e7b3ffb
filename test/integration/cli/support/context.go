package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state of one scenario. Commands run in-process, so
// the scenario owns the working directory and the environment until Cleanup.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastStdout    string
	LastStderr    string
	LastOutput    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	TempDir     string
	originalDir string
	savedEnv    map[string]*string

	// Pages written by the scenario, keyed by the name used in the feature.
	Files map[string]string

	pipeline pipelineState
}

// NewTestContext creates a scratch directory and makes it the working
// directory, with HOME pointing into it so no user configuration leaks in.
func NewTestContext() (*TestContext, error) {
	originalDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "scanprep-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	testCtx := &TestContext{
		TempDir:     tempDir,
		originalDir: originalDir,
		savedEnv:    make(map[string]*string),
		Files:       make(map[string]string),
	}

	if err := os.Chdir(tempDir); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to enter temp directory: %w", err)
	}
	testCtx.SetEnv("HOME", tempDir)
	testCtx.SetEnv("XDG_CONFIG_HOME", filepath.Join(tempDir, ".config"))
	return testCtx, nil
}

// SetEnv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) SetEnv(name, value string) {
	if _, saved := testCtx.savedEnv[name]; !saved {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.savedEnv[name] = &old
		} else {
			testCtx.savedEnv[name] = nil
		}
	}
	_ = os.Setenv(name, value)
}

// Cleanup restores the environment and the working directory and removes
// the scratch directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	for name, old := range testCtx.savedEnv {
		if old == nil {
			errs = append(errs, os.Unsetenv(name))
		} else {
			errs = append(errs, os.Setenv(name, *old))
		}
	}
	if err := os.Chdir(testCtx.originalDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to restore working directory: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}

// Path resolves a name relative to the scratch directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substituteCommandVariables replaces {dir} with the scratch directory.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.ReplaceAll(command, "{dir}", testCtx.TempDir)
}
