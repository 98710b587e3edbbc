// ABOUTME: Configuration loading and parsing for coven-tutor
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/2389/coven-tutor/internal/store"
)

// Defaults applied to fields left empty in the configuration file.
const (
	DefaultProvider       = "echo"
	DefaultModelTimeout   = 60 * time.Second
	DefaultDirectoryLimit = 50
	DefaultDedupeTTL      = 10 * time.Minute
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Config represents the complete coven-tutor configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Model    ModelConfig    `yaml:"model" toml:"model"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Session  SessionConfig  `yaml:"session" toml:"session"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// ModelConfig selects and configures the language-model provider
type ModelConfig struct {
	Provider string `yaml:"provider" toml:"provider"` // "echo" or "gemini"
	Model    string `yaml:"model" toml:"model"`
	APIKey   string `yaml:"api_key" toml:"api_key"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// SessionConfig holds tutor session behaviour
type SessionConfig struct {
	DefaultLanguage string `yaml:"default_language" toml:"default_language"`
	DirectoryLimit  int    `yaml:"directory_limit" toml:"directory_limit"`

	DedupeTTL    time.Duration `yaml:"-" toml:"-"`
	DedupeTTLRaw string        `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Language returns the configured default conversation language.
func (s SessionConfig) Language() store.Language {
	return store.Language(s.DefaultLanguage)
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(expandEnvVars(string(data)), formatFor(path))
}

// Format identifies the encoding of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes an already env-expanded configuration document, applies
// defaults, and validates the result.
func Parse(content string, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(content, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Model.Provider == "" {
		c.Model.Provider = DefaultProvider
	}
	if c.Model.Timeout == 0 {
		c.Model.Timeout = DefaultModelTimeout
	}
	if c.Session.DefaultLanguage == "" {
		c.Session.DefaultLanguage = string(store.DefaultLanguage)
	}
	if c.Session.DirectoryLimit == 0 {
		c.Session.DirectoryLimit = DefaultDirectoryLimit
	}
	if c.Session.DedupeTTL == 0 {
		c.Session.DedupeTTL = DefaultDedupeTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Model.Provider {
	case "echo":
	case "gemini":
		if c.Model.APIKey == "" {
			return fmt.Errorf("model.api_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("model.provider %q is not supported (use echo or gemini)", c.Model.Provider)
	}

	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout must not be negative")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if !c.Session.Language().Valid() {
		return fmt.Errorf("session.default_language %q is not supported", c.Session.DefaultLanguage)
	}
	if c.Session.DirectoryLimit < 0 {
		return fmt.Errorf("session.directory_limit must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use text or json)", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Model.TimeoutRaw != "" {
		cfg.Model.Timeout, err = time.ParseDuration(cfg.Model.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing model.timeout %q: %w", cfg.Model.TimeoutRaw, err)
		}
	}

	if cfg.Session.DedupeTTLRaw != "" {
		cfg.Session.DedupeTTL, err = time.ParseDuration(cfg.Session.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session.dedupe_ttl %q: %w", cfg.Session.DedupeTTLRaw, err)
		}
	}

	return nil
}
