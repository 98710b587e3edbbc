// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-tutor/internal/store"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
database:
  path: "./test.db"

model:
  provider: "gemini"
  model: "gemini-2.0-flash"
  api_key: "key-123"
  timeout: "45s"

auth:
  jwt_secret: "secret"

session:
  default_language: "English"
  directory_limit: 20
  dedupe_ttl: "2m"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./test.db", cfg.Database.Path)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model.Model)
	assert.Equal(t, "key-123", cfg.Model.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, store.LanguageEnglish, cfg.Session.Language())
	assert.Equal(t, 20, cfg.Session.DirectoryLimit)
	assert.Equal(t, 2*time.Minute, cfg.Session.DedupeTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[database]
path = "./tutor.db"

[model]
provider = "echo"
timeout = "5s"

[auth]
jwt_secret = "toml-secret"

[session]
default_language = "Español"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./tutor.db", cfg.Database.Path)
	assert.Equal(t, "echo", cfg.Model.Provider)
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "toml-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, store.LanguageSpanish, cfg.Session.Language())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
database:
  path: "./test.db"
auth:
  jwt_secret: "secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultProvider, cfg.Model.Provider)
	assert.Equal(t, DefaultModelTimeout, cfg.Model.Timeout)
	assert.Equal(t, store.DefaultLanguage, cfg.Session.Language())
	assert.Equal(t, DefaultDirectoryLimit, cfg.Session.DirectoryLimit)
	assert.Equal(t, DefaultDedupeTTL, cfg.Session.DedupeTTL)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_TUTOR_DB", "/var/lib/tutor.db")
	t.Setenv("TEST_TUTOR_SECRET", "from-env")

	path := writeConfig(t, "config.yaml", `
database:
  path: "${TEST_TUTOR_DB}"
auth:
  jwt_secret: "${TEST_TUTOR_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tutor.db", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
database:
  path: "./test.db"
auth:
  jwt_secret: "${TEST_TUTOR_DEFINITELY_UNSET}"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "reading config file"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "database: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_InvalidDuration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "model timeout",
			content: `
database: {path: "./t.db"}
auth: {jwt_secret: "s"}
model: {timeout: "soon"}
`,
			want: "model.timeout",
		},
		{
			name: "dedupe ttl",
			content: `
database: {path: "./t.db"}
auth: {jwt_secret: "s"}
session: {dedupe_ttl: "10 minutes"}
`,
			want: "session.dedupe_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Database: DatabaseConfig{Path: "./t.db"},
			Auth:     AuthConfig{JWTSecret: "s"},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing database", func(c *Config) { c.Database.Path = "" }, "database.path is required"},
		{"unknown provider", func(c *Config) { c.Model.Provider = "parrot" }, "model.provider"},
		{"gemini without key", func(c *Config) { c.Model.Provider = "gemini" }, "model.api_key"},
		{"gemini with key", func(c *Config) {
			c.Model.Provider = "gemini"
			c.Model.APIKey = "k"
		}, ""},
		{"negative timeout", func(c *Config) { c.Model.Timeout = -time.Second }, "model.timeout"},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"unknown language", func(c *Config) { c.Session.DefaultLanguage = "Klingon" }, "session.default_language"},
		{"negative limit", func(c *Config) { c.Session.DirectoryLimit = -1 }, "session.directory_limit"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_A", "alpha")
	t.Setenv("TEST_EXPAND_B", "beta")

	tests := []struct {
		input string
		want  string
	}{
		{"no vars", "no vars"},
		{"${TEST_EXPAND_A}", "alpha"},
		{"${TEST_EXPAND_A}-${TEST_EXPAND_B}", "alpha-beta"},
		{"prefix ${TEST_EXPAND_UNSET_X} suffix", "prefix  suffix"},
		{"$TEST_EXPAND_A stays", "$TEST_EXPAND_A stays"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.input))
		})
	}
}
