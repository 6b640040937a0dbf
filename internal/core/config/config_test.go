package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sample = `
app:
  name: greenhome-test
  env: production
  http:
    port: 8088
    corsOrigins: ["https://greenhome.example"]
log:
  level: debug
  json: true
db:
  driver: memory
auth:
  provider: local
  local:
    secret: "0123456789abcdef0123"
    issuer: greenhome-test
    ttlMin: 15
upload:
  maxFiles: 4
`

func TestLoadFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	c, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.App.Name != "greenhome-test" || c.App.HTTP.Port != 8088 {
		t.Fatalf("app = %+v", c.App)
	}
	if !c.IsProduction() {
		t.Fatal("IsProduction = false")
	}
	if len(c.App.HTTP.CORSOrigins) != 1 || c.App.HTTP.CORSOrigins[0] != "https://greenhome.example" {
		t.Fatalf("corsOrigins = %v", c.App.HTTP.CORSOrigins)
	}
	if c.Auth.Local.TTLMin != 15 || c.Auth.Local.Issuer != "greenhome-test" {
		t.Fatalf("auth.local = %+v", c.Auth.Local)
	}
	if c.Upload.MaxFiles != 4 {
		t.Fatalf("upload.maxFiles = %d", c.Upload.MaxFiles)
	}
	// 未写的键取默认值
	if c.Limits.Burst != 400 || c.Limits.TimeoutSec != 10 {
		t.Fatalf("limits = %+v", c.Limits)
	}
	if c.App.HTTP.ReadTimeoutSec != 15 {
		t.Fatalf("readTimeoutSec = %d", c.App.HTTP.ReadTimeoutSec)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_APP_HTTP_PORT", "9099")
	t.Setenv("APP_LOG_LEVEL", "warn")
	c, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.App.HTTP.Port != 9099 {
		t.Fatalf("port = %d, want env override 9099", c.App.HTTP.Port)
	}
	if c.Log.Level != "warn" {
		t.Fatalf("log.level = %q", c.Log.Level)
	}
}

func TestDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_AUTH_FIREBASE_PROJECTID", "greenhome-demo")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DB.Driver != "mongo" || c.DB.Mongo.Database != "GreenHome" {
		t.Fatalf("db = %+v", c.DB)
	}
	if c.Auth.Provider != "firebase" || c.Auth.Firebase.ProjectID != "greenhome-demo" {
		t.Fatalf("auth = %+v", c.Auth)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	tests := []struct {
		name string
		body string
		want string
	}{
		{"driver", "db:\n  driver: cassandra\nauth:\n  provider: local\n  local:\n    secret: 0123456789abcdef\n", "unsupported db.driver"},
		{"sql dsn", "db:\n  driver: postgres\nauth:\n  provider: local\n  local:\n    secret: 0123456789abcdef\n", "db.dsn is required"},
		{"short secret", "db:\n  driver: memory\nauth:\n  provider: local\n  local:\n    secret: short\n", "at least 16 bytes"},
		{"provider", "db:\n  driver: memory\nauth:\n  provider: saml\n", "unsupported auth.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
