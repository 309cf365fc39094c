package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("USERNAME", "")
	t.Setenv("APP_USERNAME", "")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "o1-mini", cfg.LLM.CodegenDeployment)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.ExtractionDeployment)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "playwright", cfg.Browser.Driver)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, "auto", cfg.Pipeline.MatchMode)
	assert.Equal(t, 2, cfg.Pipeline.RepairAttempts)
	assert.Equal(t, int64(1), cfg.Server.MaxConcurrentRuns)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_BASE", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
	t.Setenv("APP_USERNAME", "problem_user")
	t.Setenv("USERNAME", "os-user")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_ACTION_TIMEOUT", "30s")
	t.Setenv("MISMATCH_POLICY", "strict")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://example.openai.azure.com", cfg.LLM.Endpoint)
	assert.Equal(t, "problem_user", cfg.Login.Username, "APP_USERNAME wins over USERNAME")
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.ActionTimeout)
	assert.Equal(t, "strict", cfg.Pipeline.MismatchPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  driver: chromedp\nserver:\n  addr: \":9090\"\n"), 0644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "chromedp", cfg.Browser.Driver)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	_, err = Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Browser: BrowserConfig{Driver: "playwright"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	cfg.LLM = LLMConfig{Endpoint: "https://e", APIKey: "k", CodegenDeployment: "a", ExtractionDeployment: "b"}
	assert.NoError(t, cfg.Validate())

	cfg.Browser.Driver = "selenium"
	assert.Error(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TC_TRANSFORMER_TEST_VAR=loaded\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("TC_TRANSFORMER_TEST_VAR") })

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"), path))
	assert.Equal(t, "loaded", os.Getenv("TC_TRANSFORMER_TEST_VAR"))
}
