package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_When_FileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_When_PartialFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "reporter_flag: \"--logger:tdd-guard\"\nvalidate_results: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "--logger:tdd-guard", cfg.ReporterFlag)
	assert.True(t, cfg.ValidateResults)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoad_When_RootMarkersConfigured(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "root_markers:\n  - [\".hg\"]\n  - [\"*.sln\", \"*.fsproj\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cfg.RootMarkers, 2)
	assert.Equal(t, []string{".hg"}, cfg.RootMarkers[0])
	assert.Equal(t, []string{"*.sln", "*.fsproj"}, cfg.RootMarkers[1])
}

func TestLoad_When_MalformedYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("reporter_flag: [unclosed"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
