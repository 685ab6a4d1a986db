package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.HasCredential())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
log_level: LOUD
llm:
  api_key: "  sk-test  "
  timeout_seconds: -1
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.HasCredential())
	assert.Equal(t, 8*time.Second, cfg.LLMTimeout())
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
	assert.Equal(t, 256, cfg.DescribeCacheSize)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Seoul"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	assert.Error(t, Save("", cfg))
	assert.Error(t, Save(path, nil))
}

func TestApplyEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENAI_MODEL=gpt-test\n"), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_MODEL", "")
	require.NoError(t, os.Unsetenv("OPENAI_MODEL"))

	loaded := LoadDotEnv(envFile, filepath.Join(dir, "missing.env"))
	assert.Equal(t, []string{envFile}, loaded)

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-test", cfg.LLM.Model)
	assert.Equal(t, 3*time.Second, cfg.LLMTimeout())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.HasCredential())
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	cfg.Timezone = "Mars/Olympus_Mons"
	loc, err = cfg.Location()
	assert.Error(t, err)
	assert.Equal(t, time.Local, loc)
}
