package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/scanprep/internal/config"
)

func showConfig(t *testing.T, args ...string) config.Config {
	t.Helper()
	out, _, err := execute(t, append([]string{"config", "show", "--json"}, args...)...)
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	return cfg
}

func TestConfigShowDefaults(t *testing.T) {
	isolate(t)
	cfg := showConfig(t)
	d := config.DefaultConfig()
	assert.Equal(t, d.Pipeline.TargetWidth, cfg.Pipeline.TargetWidth)
	assert.Equal(t, d.Pipeline.Steps, cfg.Pipeline.Steps)
	assert.Equal(t, d.Oracle.Backend, cfg.Oracle.Backend)
}

func TestConfigShowYAML(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 800, cfg.Pipeline.TargetWidth)
	assert.Contains(t, out, "target_width: 800")
}

func TestConfigPrecedence(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scanprep.yaml"),
		[]byte("pipeline:\n  target_width: 1000\n  steps: [contrast]\noracle:\n  language: german\n"), 0o600))

	cfg := showConfig(t)
	assert.Equal(t, 1000, cfg.Pipeline.TargetWidth)
	assert.Equal(t, []string{"contrast"}, cfg.Pipeline.Steps)
	assert.Equal(t, "german", cfg.Oracle.Language)

	t.Setenv("SCANPREP_PIPELINE_TARGET_WIDTH", "900")
	assert.Equal(t, 900, showConfig(t).Pipeline.TargetWidth)

	cfg = showConfig(t, "--width", "640", "--steps", "threshold,crop")
	assert.Equal(t, 640, cfg.Pipeline.TargetWidth)
	assert.Equal(t, []string{"threshold", "crop"}, cfg.Pipeline.Steps)
}

func TestConfigExplicitFile(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("batch:\n  workers: 9\n"), 0o600))

	cfg := showConfig(t, "--config", file)
	assert.Equal(t, 9, cfg.Batch.Workers)

	_, _, err := execute(t, "config", "show", "--config", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	out, _, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "scanprep.yaml")
	assert.FileExists(t, filepath.Join(dir, "scanprep.yaml"))

	_, _, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	nested := filepath.Join(dir, "etc", "custom.yaml")
	_, _, err = execute(t, "config", "init", nested)
	require.NoError(t, err)
	assert.FileExists(t, nested)

	// The generated file loads back to the defaults.
	assert.Equal(t, 800, showConfig(t).Pipeline.TargetWidth)
}

func TestConfigValidate(t *testing.T) {
	dir := isolate(t)

	out, _, err := execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scanprep.yaml"), []byte("batch:\n  workers: 0\n"), 0o600))

	// show still works on an invalid file, validate and processing do not.
	assert.Equal(t, 0, showConfig(t).Batch.Workers)

	_, _, err = execute(t, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid batch workers")

	_, _, err = execute(t, "steps")
	require.Error(t, err)
}

func TestConfigPaths(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration search paths")
	assert.Contains(t, out, config.EnvPrefix)
}
