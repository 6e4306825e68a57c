// ABOUTME: Configuration loading and parsing for the zeeking client
// ABOUTME: Supports YAML or TOML files with env var expansion, env overrides and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides (ZEEKING_API_BASE_URL, ...)
const EnvPrefix = "ZEEKING"

// DefaultBaseURL is the local development backend
const DefaultBaseURL = "http://127.0.0.1:8000/api"

// Config represents the complete zeeking client configuration
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api" envconfig:"API"`
	Storage StorageConfig `yaml:"storage" toml:"storage" envconfig:"STORAGE"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" envconfig:"LOGGING"`
	Chat    ChatConfig    `yaml:"chat" toml:"chat" envconfig:"CHAT"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url" envconfig:"BASE_URL"`

	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout    time.Duration `yaml:"-" toml:"-" ignored:"true"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout" envconfig:"TIMEOUT"`

	// Retries applies to idempotent reads only; sends are never retried
	Retries int `yaml:"retries" toml:"retries" envconfig:"RETRIES"`

	Paths PathsConfig `yaml:"paths" toml:"paths" ignored:"true"`
}

// PathsConfig holds endpoint paths relative to the base URL.
// Paths containing {id} are expanded with the conversation ID.
type PathsConfig struct {
	Login              string `yaml:"login" toml:"login"`
	Register           string `yaml:"register" toml:"register"`
	ForgotPassword     string `yaml:"forgot_password" toml:"forgot_password"`
	VerifyOTP          string `yaml:"verify_otp" toml:"verify_otp"`
	ResetPassword      string `yaml:"reset_password" toml:"reset_password"`
	Stats              string `yaml:"stats" toml:"stats"`
	Conversations      string `yaml:"conversations" toml:"conversations"`
	Conversation       string `yaml:"conversation" toml:"conversation"`
	DeleteConversation string `yaml:"delete_conversation" toml:"delete_conversation"`
	Advise             string `yaml:"advise" toml:"advise"`
}

// StorageConfig holds local persistence settings
type StorageConfig struct {
	Path string `yaml:"path" toml:"path" envconfig:"PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" toml:"format" envconfig:"FORMAT"`
}

// ChatConfig holds conversation behaviour settings
type ChatConfig struct {
	// ErrorFallback is shown when a failed send carries no error text
	ErrorFallback string `yaml:"error_fallback" toml:"error_fallback" envconfig:"ERROR_FALLBACK"`

	// DailyLimit is the daily token allowance shown next to usage
	DailyLimit int `yaml:"daily_limit" toml:"daily_limit" envconfig:"DAILY_LIMIT"`
}

// DefaultPaths returns the endpoint layout of the ZeekingAI backend
func DefaultPaths() PathsConfig {
	return PathsConfig{
		Login:              "auth/login/",
		Register:           "auth/register/",
		ForgotPassword:     "auth/forgot-password/",
		VerifyOTP:          "auth/verify-otp/",
		ResetPassword:      "auth/reset-password/",
		Stats:              "auth/stats/",
		Conversations:      "chats/",
		Conversation:       "chats/{id}/",
		DeleteConversation: "chats/{id}/delete/",
		Advise:             "advise/",
	}
}

// Default returns a configuration that works against a local backend
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			Timeout:    60 * time.Second,
			TimeoutRaw: "60s",
			Retries:    2,
			Paths:      DefaultPaths(),
		},
		Storage: StorageConfig{
			Path: filepath.Join(DataDir(), "zeeking.db"),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Chat: ChatConfig{
			ErrorFallback: "Sorry, I encountered an error. Could you try again?",
			DailyLimit:    5000,
		},
	}
}

// DefaultPath returns the path to the config file.
// Priority: ZEEKING_CONFIG env var > XDG_CONFIG_HOME/zeeking/config.yaml > ~/.config/zeeking/config.yaml
func DefaultPath() string {
	if envPath := os.Getenv(EnvPrefix + "_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "zeeking", "config.yaml")
}

// DataDir returns the zeeking data directory.
// Priority: XDG_DATA_HOME/zeeking > ~/.local/share/zeeking
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "zeeking")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML. Keys
// missing from the file keep their defaults. Environment variables in the
// format ${VAR_NAME} are expanded, then ZEEKING_* overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(cfg)
}

// LoadOrDefault loads path when it exists. A missing file is only an error
// when required is set (the user named it explicitly); otherwise defaults
// plus environment overrides are returned.
func LoadOrDefault(path string, required bool) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return finish(Default())
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Load(path)
}

// finish applies environment overrides, parses durations and validates
func finish(cfg *Config) (*Config, error) {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url must include a host")
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("api.retries must not be negative")
	}

	if !strings.Contains(c.API.Paths.Conversation, "{id}") {
		return fmt.Errorf("api.paths.conversation must contain {id}")
	}
	if !strings.Contains(c.API.Paths.DeleteConversation, "{id}") {
		return fmt.Errorf("api.paths.delete_conversation must contain {id}")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	if c.Chat.DailyLimit <= 0 {
		return fmt.Errorf("chat.daily_limit must be positive")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.API.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing api.timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
		cfg.API.Timeout = d
	}
	return nil
}
