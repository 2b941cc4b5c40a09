package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmallory/revu/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper
	viper.Reset()
	viper.SetDefault("db_path", filepath.Join(dir, "revu.db"))
	viper.SetDefault("presets_path", filepath.Join(dir, "presets.yaml"))
	viper.SetDefault("provider", "openai")
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("stream.max_chars", 2_000_000)
	viper.SetDefault("port", 8080)

	// Initialize output
	ui = output.New()

	return dir
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "revu configuration")
	assert.Contains(t, string(data), `provider: "openai"`)
	assert.Contains(t, string(data), "max_chars: 2000000")
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.ErrorContains(t, err, "already exists")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestConfigInit_ForceOverwrites(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	t.Cleanup(func() { configForce = false })
	require.NoError(t, configInitRun())

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "revu configuration")
}

func TestConfigShow_RunsWithoutFile(t *testing.T) {
	testEnv(t)
	assert.NoError(t, configShowRun())
}

func TestReadConfigFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `provider: anthropic
openai:
  api_key: sk-x
  model: gpt-4o
stream:
  max_chars: 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	values := readConfigFileValues(path)
	assert.True(t, values["provider"])
	assert.True(t, values["openai.api_key"])
	assert.True(t, values["openai.model"])
	assert.True(t, values["stream.max_chars"])
	assert.False(t, values["db_path"])

	t.Run("missing file is empty", func(t *testing.T) {
		assert.Empty(t, readConfigFileValues(filepath.Join(dir, "nope.yaml")))
	})
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"provider": true}

	assert.Equal(t, "(file)", detectSource("provider", "REVU_NOT_SET_EVER", fileValues))
	assert.Equal(t, "(default)", detectSource("db_path", "REVU_NOT_SET_EVER", fileValues))

	t.Setenv("REVU_TEST_SOURCE", "x")
	assert.Equal(t, "(env REVU_TEST_SOURCE)", detectSource("provider", "REVU_TEST_SOURCE", fileValues))
}

func TestLanguageFromExtension(t *testing.T) {
	tests := map[string]string{
		"main.go":      "go",
		"script.py":    "python",
		"app.ts":       "typescript",
		"lib.rs":       "rust",
		"query.sql":    "sql",
		"strange.zig":  "zig",
		"Makefile":     "",
		"header.hpp":   "cpp",
		"service.java": "java",
	}
	for path, want := range tests {
		assert.Equal(t, want, languageFromExtension(path), path)
	}
}
