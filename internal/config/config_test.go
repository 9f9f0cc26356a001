package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"FLASHDECK_CONFIG_PATH",
	"FLASHDECK_PORT",
	"FLASHDECK_READ_TIMEOUT",
	"FLASHDECK_WRITE_TIMEOUT",
	"FLASHDECK_SHUTDOWN_TIMEOUT",
	"FLASHDECK_DB_DRIVER",
	"FLASHDECK_DB_DSN",
	"FLASHDECK_JWT_SECRET",
	"FLASHDECK_TOKEN_TTL",
	"FLASHDECK_BCRYPT_COST",
	"FLASHDECK_LOG_LEVEL",
	"FLASHDECK_LOG_FORMAT",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
	// point at a file that does not exist so a local config/ never leaks in
	t.Setenv("FLASHDECK_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flashdeck.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func dur(d Duration) time.Duration {
	return time.Duration(d)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if dur(cfg.Server.ShutdownTimeout) != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 30s", dur(cfg.Server.ShutdownTimeout))
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "data/flashdeck.db" {
		t.Errorf("Database = %+v, want sqlite data/flashdeck.db", cfg.Database)
	}
	if dur(cfg.Auth.TokenTTL) != 24*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 24h", dur(cfg.Auth.TokenTTL))
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("Auth.BcryptCost = %d, want 12", cfg.Auth.BcryptCost)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9000
  read_timeout: 5s
database:
  driver: postgres
  dsn: postgres://flashdeck@localhost/flashdeck
auth:
  token_ttl: 2h
log:
  level: debug
  format: json
`)
	t.Setenv("FLASHDECK_CONFIG_PATH", path)
	t.Setenv("FLASHDECK_PORT", "9100")
	t.Setenv("FLASHDECK_JWT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if dur(cfg.Server.ReadTimeout) != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", dur(cfg.Server.ReadTimeout))
	}
	if dur(cfg.Server.WriteTimeout) != 15*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want default 15s", dur(cfg.Server.WriteTimeout))
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if dur(cfg.Auth.TokenTTL) != 2*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 2h", dur(cfg.Auth.TokenTTL))
	}
	if cfg.Auth.JWTSecret != "0123456789abcdef" {
		t.Errorf("Auth.JWTSecret = %q, want value from env", cfg.Auth.JWTSecret)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_SecretIgnoredInYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "auth:\n  jwt_secret: from-the-file-1234\n")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "" {
		t.Errorf("Auth.JWTSecret = %q, want empty (env-only)", cfg.Auth.JWTSecret)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad duration in yaml", yaml: "server:\n  read_timeout: soon\n", wantErr: "invalid duration"},
		{name: "unknown driver", env: map[string]string{"FLASHDECK_DB_DRIVER": "oracle"}, wantErr: "database.driver"},
		{name: "bad port env", env: map[string]string{"FLASHDECK_PORT": "eighty"}, wantErr: "FLASHDECK_PORT"},
		{name: "port out of range", env: map[string]string{"FLASHDECK_PORT": "70000"}, wantErr: "server.port"},
		{name: "bad log format", env: map[string]string{"FLASHDECK_LOG_FORMAT": "xml"}, wantErr: "log.format"},
		{name: "bad ttl env", env: map[string]string{"FLASHDECK_TOKEN_TTL": "1 day"}, wantErr: "FLASHDECK_TOKEN_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.yaml != "" {
				t.Setenv("FLASHDECK_CONFIG_PATH", writeConfig(t, tt.yaml))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFromFile() on a missing file error = nil, want error")
	}
}

func TestValidateAuth(t *testing.T) {
	tests := []struct {
		secret  string
		wantErr bool
	}{
		{secret: "", wantErr: true},
		{secret: "short", wantErr: true},
		{secret: strings.Repeat("x", MinJWTSecretLength)},
	}
	for _, tt := range tests {
		cfg := newDefaults()
		cfg.Auth.JWTSecret = tt.secret
		if err := cfg.ValidateAuth(); (err != nil) != tt.wantErr {
			t.Errorf("ValidateAuth(%q) error = %v, wantErr %v", tt.secret, err, tt.wantErr)
		}
	}
}
