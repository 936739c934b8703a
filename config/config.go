// Package config loads the insights configuration from YAML, .env files and the environment.
package config

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel       = "openai/gpt-4o"
	DefaultPython      = "python3"
	DefaultTimeout     = 60 * time.Second
	DefaultDataDir     = "data"
	DefaultCaseLimit   = 50
	defaultLogLevel    = "info"
	maxChartTimeout    = 10 * time.Minute
	dataverseAPIPrefix = "/api/data/v9.2"
)

type Config struct {
	Model        string          `yaml:"model" json:"model"`
	OpenAIAPIKey string          `yaml:"openai_api_key" json:"-"`
	LogLevel     string          `yaml:"log_level" json:"log_level"`
	Dataverse    DataverseConfig `yaml:"dataverse" json:"dataverse"`
	Chart        ChartConfig     `yaml:"chart" json:"chart"`
	Security     SecurityConfig  `yaml:"security" json:"security"`
}

type DataverseConfig struct {
	ResourceURL  string `yaml:"resource_url" json:"resource_url"`
	TenantID     string `yaml:"tenant_id" json:"tenant_id"`
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
	// Token is a pre-issued bearer token used instead of client credentials
	Token     string `yaml:"token" json:"-"`
	CaseLimit int    `yaml:"case_limit" json:"case_limit"`
}

type ChartConfig struct {
	Python     string        `yaml:"python" json:"python"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	DataDir    string        `yaml:"data_dir" json:"data_dir"`
	SaveImages bool          `yaml:"save_images" json:"save_images"`
}

type SecurityConfig struct {
	DangerousCalls   []string `yaml:"dangerous_calls" json:"dangerous_calls"`
	DangerousImports []string `yaml:"dangerous_imports" json:"dangerous_imports"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model:    DefaultModel,
		LogLevel: defaultLogLevel,
		Dataverse: DataverseConfig{
			CaseLimit: DefaultCaseLimit,
		},
		Chart: ChartConfig{
			Python:  DefaultPython,
			Timeout: DefaultTimeout,
			DataDir: DefaultDataDir,
		},
	}
}

// Load reads the YAML file at path, applies environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if cfg, err = Decode(f); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.validate()
	return cfg, nil
}

// Decode parses YAML on top of the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("INSIGHTS_MODEL", &c.Model)
	set("OPENAI_API_KEY", &c.OpenAIAPIKey)
	set("INSIGHTS_LOG_LEVEL", &c.LogLevel)
	set("DATAVERSE_RESOURCE_URL", &c.Dataverse.ResourceURL)
	set("DATAVERSE_TENANT_ID", &c.Dataverse.TenantID)
	set("DATAVERSE_CLIENT_ID", &c.Dataverse.ClientID)
	set("DATAVERSE_CLIENT_SECRET", &c.Dataverse.ClientSecret)
	set("DATAVERSE_TOKEN", &c.Dataverse.Token)

	if v, ok := lookup("SAVE_IMAGES"); ok {
		c.Chart.SaveImages = ParseBool(v)
	}
}

// ParseBool accepts yes, true and 1 in any case.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return true
	}
	return false
}

func (c *Config) validate() {
	if c.Model == "" {
		slog.Warn("missing model, using default", "default", DefaultModel)
		c.Model = DefaultModel
	} else if !strings.Contains(c.Model, "/") {
		slog.Error("model must be provider/name, using default", "model", c.Model, "default", DefaultModel)
		c.Model = DefaultModel
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	case "":
		c.LogLevel = defaultLogLevel
	default:
		slog.Error("invalid log_level, using info as default", "log_level", c.LogLevel)
		c.LogLevel = defaultLogLevel
	}

	if c.Dataverse.CaseLimit <= 0 {
		slog.Error("case_limit must be positive, using default", "case_limit", c.Dataverse.CaseLimit, "default", DefaultCaseLimit)
		c.Dataverse.CaseLimit = DefaultCaseLimit
	}
	c.Dataverse.ResourceURL = strings.TrimSuffix(strings.TrimSuffix(c.Dataverse.ResourceURL, "/"), dataverseAPIPrefix)

	if c.Chart.Python == "" {
		c.Chart.Python = DefaultPython
	}
	if c.Chart.Timeout <= 0 || c.Chart.Timeout > maxChartTimeout {
		slog.Error("chart timeout out of range, using default", "timeout", c.Chart.Timeout, "default", DefaultTimeout)
		c.Chart.Timeout = DefaultTimeout
	}
	if c.Chart.DataDir == "" {
		c.Chart.DataDir = DefaultDataDir
	}
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasCredentials reports whether either a token or a full client credential set is present.
func (d DataverseConfig) HasCredentials() bool {
	if d.ResourceURL == "" {
		return false
	}
	return d.Token != "" || (d.TenantID != "" && d.ClientID != "" && d.ClientSecret != "")
}
