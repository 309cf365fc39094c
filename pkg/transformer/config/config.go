// Package config loads process configuration from the environment, an
// optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig indicates a missing or malformed setting.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the immutable process configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Login    LoginConfig    `mapstructure:"login"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// LLMConfig configures the Azure OpenAI endpoint and both deployments.
type LLMConfig struct {
	Endpoint             string        `mapstructure:"endpoint"`
	APIKey               string        `mapstructure:"api_key"`
	APIVersion           string        `mapstructure:"api_version"`
	CodegenDeployment    string        `mapstructure:"codegen_deployment"`
	ExtractionDeployment string        `mapstructure:"extraction_deployment"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// LoginConfig holds the credentials for the application under test.
type LoginConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// BrowserConfig selects and tunes the browser driver.
type BrowserConfig struct {
	Driver        string        `mapstructure:"driver"`
	Headless      bool          `mapstructure:"headless"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
}

// PipelineConfig tunes result matching and repair.
type PipelineConfig struct {
	MatchMode      string `mapstructure:"match_mode"`
	MismatchPolicy string `mapstructure:"mismatch_policy"`
	RepairAttempts int    `mapstructure:"repair_attempts"`
	MaxHTMLChars   int    `mapstructure:"max_html_chars"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr              string `mapstructure:"addr"`
	MaxConcurrentRuns int64  `mapstructure:"max_concurrent_runs"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to environment variables, first match wins.
var envBindings = map[string][]string{
	"llm.endpoint":               {"AZURE_OPENAI_API_BASE"},
	"llm.api_key":                {"AZURE_OPENAI_API_KEY"},
	"llm.api_version":            {"OPENAI_API_VERSION"},
	"llm.codegen_deployment":     {"O1_MINI_DEPLOYMENT_NAME"},
	"llm.extraction_deployment":  {"GPT_4O_MINI_DEPLOYMENT_NAME"},
	"llm.timeout":                {"LLM_TIMEOUT"},
	"login.url":                  {"LOGIN_URL"},
	"login.username":             {"APP_USERNAME", "USERNAME"},
	"login.password":             {"APP_PASSWORD", "PASSWORD"},
	"browser.driver":             {"BROWSER_DRIVER"},
	"browser.headless":           {"BROWSER_HEADLESS"},
	"browser.action_timeout":     {"BROWSER_ACTION_TIMEOUT"},
	"pipeline.match_mode":        {"MATCH_MODE"},
	"pipeline.mismatch_policy":   {"MISMATCH_POLICY"},
	"pipeline.repair_attempts":   {"REPAIR_ATTEMPTS"},
	"pipeline.max_html_chars":    {"MAX_HTML_CHARS"},
	"server.addr":                {"LISTEN_ADDR"},
	"server.max_concurrent_runs": {"MAX_CONCURRENT_RUNS"},
	"log.level":                  {"LOG_LEVEL"},
	"log.format":                 {"LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.api_version", "2024-12-01-preview")
	v.SetDefault("llm.codegen_deployment", "o1-mini")
	v.SetDefault("llm.extraction_deployment", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 120*time.Second)
	v.SetDefault("login.url", "https://www.saucedemo.com")
	v.SetDefault("login.username", "standard_user")
	v.SetDefault("login.password", "secret_sauce")
	v.SetDefault("browser.driver", "playwright")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.action_timeout", 5*time.Second)
	v.SetDefault("pipeline.match_mode", "auto")
	v.SetDefault("pipeline.mismatch_policy", "tolerate")
	v.SetDefault("pipeline.repair_attempts", 2)
	v.SetDefault("pipeline.max_html_chars", 0)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.max_concurrent_runs", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadDotEnv loads variables from the given .env files. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}
	return v
}

// Load reads configuration from v, merging configFile when non-empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.LLM.Endpoint), "/")
	return &cfg, nil
}

// Validate checks the settings needed to run the pipeline.
func (c *Config) Validate() error {
	var missing []string
	if c.LLM.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_API_BASE")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "AZURE_OPENAI_API_KEY")
	}
	if c.LLM.CodegenDeployment == "" || c.LLM.ExtractionDeployment == "" {
		missing = append(missing, "deployment names")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}

	switch strings.ToLower(c.Browser.Driver) {
	case "playwright", "chromedp":
	default:
		return fmt.Errorf("%w: unknown browser driver %q", ErrInvalidConfig, c.Browser.Driver)
	}
	if c.Pipeline.RepairAttempts < 0 {
		return fmt.Errorf("%w: repair_attempts must be >= 0", ErrInvalidConfig)
	}
	return nil
}
