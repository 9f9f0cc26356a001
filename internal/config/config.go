// Package config loads flashdeck settings: defaults, then an optional YAML
// file, then FLASHDECK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinJWTSecretLength is the shortest signing secret the server accepts.
const MinJWTSecretLength = 16

// Config is the root configuration structure. It is read-only after Load
// returns.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the store. DSN is a file path for sqlite and a
// connection URL for postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AuthConfig contains token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string   `yaml:"-"` // env-only, never in YAML
	TokenTTL   Duration `yaml:"token_ttl"`
	BcryptCost int      `yaml:"bcrypt_cost"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a time.Duration written as a string ("30s") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// The file path comes from FLASHDECK_CONFIG_PATH; a missing file is fine.
func Load() (*Config, error) {
	return load(getEnv("FLASHDECK_CONFIG_PATH", "config/flashdeck.yaml"), false)
}

// LoadFromFile loads configuration from path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, mustExist bool) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err) && !mustExist:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/flashdeck.db",
		},
		Auth: AuthConfig{
			TokenTTL:   Duration(24 * time.Hour),
			BcryptCost: 12,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyEnvOverrides applies non-empty FLASHDECK_* variables. Unlike a YAML
// typo, a malformed number or duration in the environment is an error.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	intVar := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	durationVar := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
				return
			}
			*dst = Duration(d)
		}
	}
	stringVar := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// Server
	intVar("FLASHDECK_PORT", &cfg.Server.Port)
	durationVar("FLASHDECK_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	durationVar("FLASHDECK_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	durationVar("FLASHDECK_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	stringVar("FLASHDECK_DB_DRIVER", &cfg.Database.Driver)
	stringVar("FLASHDECK_DB_DSN", &cfg.Database.DSN)

	// Auth
	stringVar("FLASHDECK_JWT_SECRET", &cfg.Auth.JWTSecret)
	durationVar("FLASHDECK_TOKEN_TTL", &cfg.Auth.TokenTTL)
	intVar("FLASHDECK_BCRYPT_COST", &cfg.Auth.BcryptCost)

	// Log
	stringVar("FLASHDECK_LOG_LEVEL", &cfg.Log.Level)
	stringVar("FLASHDECK_LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

func (c *Config) validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateAuth checks the settings only the HTTP server needs. Commands that
// never issue tokens (migrate, user create) skip it.
func (c *Config) ValidateAuth() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("FLASHDECK_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("FLASHDECK_JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
