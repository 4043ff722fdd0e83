package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromDir(t *testing.T, dir string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	return Load()
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFromDir(t, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.PrimaryProvider)
	assert.True(t, cfg.LLM.FallbackEnabled)
	assert.True(t, cfg.LLM.NarrativeEnabled)
	assert.Equal(t, 30*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 4*time.Second, cfg.LLM.Gemini.MinInterval)
	assert.Equal(t, 24*time.Hour, cfg.Reputation.CacheTTL)
	assert.Equal(t, 3, cfg.Memory.TopK)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadDerivesPaths(t *testing.T) {
	cfg, err := loadFromDir(t, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("./data", "reports"), cfg.DataPaths.ReportsDir)
	assert.Equal(t, filepath.Join("./data", "false_positive_notes.log"), cfg.DataPaths.AuditLogPath)
	assert.Equal(t, filepath.Join("./data", "memory_base.yaml"), cfg.DataPaths.CorpusPath)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
data_paths:
  data_dir: /var/lib/nuvex
llm:
  primary_provider: gemini
  fallback_enabled: false
memory:
  top_k: 5
api:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nuvex.yaml"), []byte(content), 0o600))

	cfg, err := loadFromDir(t, dir)
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.PrimaryProvider)
	assert.False(t, cfg.LLM.FallbackEnabled)
	assert.Equal(t, 5, cfg.Memory.TopK)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, filepath.Join("/var/lib/nuvex", "reports"), cfg.DataPaths.ReportsDir)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nuvex.yaml"),
		[]byte("llm:\n  primary_provider: watson\n"), 0o600))

	_, err := loadFromDir(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary_provider")
}

func TestLoadRejectsBadPort(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nuvex.yaml"),
		[]byte("api:\n  port: 70000\n"), 0o600))

	_, err := loadFromDir(t, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestSecondaryProvider(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.PrimaryProvider = ProviderOpenAI
	assert.Equal(t, ProviderGemini, cfg.SecondaryProvider())

	cfg.LLM.PrimaryProvider = ProviderGemini
	assert.Equal(t, ProviderOpenAI, cfg.SecondaryProvider())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NUVEX_API_PORT", "9191")

	cfg, err := loadFromDir(t, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.API.Port)
}
