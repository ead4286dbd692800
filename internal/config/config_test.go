package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaultsPlusEnv(t *testing.T) {
	t.Setenv("FOCUS_DB_URL", "postgres://localhost/focus_test")
	t.Setenv("FOCUS_ANTHROPIC_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Context.MaxContextTokens, cfg.Context.MaxContextTokens)
	assert.Equal(t, "postgres://localhost/focus_test", cfg.General.DBURL)
}

func TestLoad_MissingFileAndNoDBURLErrors(t *testing.T) {
	t.Setenv("FOCUS_DB_URL", "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("FOCUS_DB_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
general:
  db_url: "postgres://localhost/focus"
  log_level: "debug"
context:
  max_context_tokens: 2000
skills:
  auto_generate: false
mcp:
  disabled_tools: ["focus_project_status"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/focus", cfg.General.DBURL)
	assert.Equal(t, "debug", cfg.General.LogLevel)
	assert.Equal(t, 2000, cfg.Context.MaxContextTokens)
	assert.False(t, cfg.Skills.AutoGenerate)
	assert.Equal(t, []string{"focus_project_status"}, cfg.MCP.DisabledTools)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`general:
  db_url: "postgres://file/db"
`), 0600))
	t.Setenv("FOCUS_DB_URL", "postgres://env/db")
	t.Setenv("FOCUS_ANTHROPIC_API_KEY", "sk-test-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.General.DBURL)
	assert.Equal(t, "sk-test-key", cfg.AnthropicAPIKey)
}

func TestLoad_InvalidYAMLErrors(t *testing.T) {
	t.Setenv("FOCUS_DB_URL", "postgres://localhost/focus_test")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid: yaml"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault_HasSensibleBudgetsAndConfirmationTokens(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1500, cfg.Context.MaxContextTokens)
	assert.Contains(t, cfg.Skills.ConfirmationTokens, "thanks")
	assert.Equal(t, 2, cfg.Worker.Parallelism)
}
