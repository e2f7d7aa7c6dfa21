package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "strict", cfg.StartupFailureMode)
	assert.Equal(t, 5*time.Second, cfg.ShutdownComponentDeadline)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
startup_failure_mode: warn
shutdown_component_deadline: 2s
debug_responses: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.StartupFailureMode)
	assert.Equal(t, 2*time.Second, cfg.ShutdownComponentDeadline)
	assert.True(t, cfg.DebugResponses)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`startup_failure_mode: warn`), 0o644))

	t.Setenv("LOOM_STARTUP_FAILURE_MODE", "ignore")
	t.Setenv("LOOM_DEBUG_RESPONSES", "yes")
	t.Setenv("LOOM_CODEC_PRIORITIES", "application/json,application/x-www-form-urlencoded")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ignore", cfg.StartupFailureMode)
	assert.True(t, cfg.DebugResponses)
	assert.Equal(t, []string{"application/json", "application/x-www-form-urlencoded"}, cfg.CodecPriorities)
}

func TestLoad_InvalidFailureModeRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`startup_failure_mode: bogus`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_NonPositiveShutdownDeadlineRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`shutdown_component_deadline: 0s`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWatcher_ReloadAppliesOnlyMutableFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
startup_failure_mode: strict
shutdown_component_deadline: 5s
debug_responses: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	w, err := NewWatcher(path, cfg, nil, func(c *Config) { changed <- c })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`
startup_failure_mode: warn
shutdown_component_deadline: 9s
debug_responses: true
`), 0o644))

	select {
	case c := <-changed:
		assert.Equal(t, 9*time.Second, c.ShutdownComponentDeadline)
		assert.True(t, c.DebugResponses)
		assert.Equal(t, "strict", c.StartupFailureMode, "immutable field must not change via watcher")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
