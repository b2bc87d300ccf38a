package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
	return tmpDir
}

func TestLoad(t *testing.T) {
	// No config file: defaults apply
	chdirTemp(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Database.Dialect != "mysql" {
		t.Errorf("expected default dialect mysql, got %s", cfg.Database.Dialect)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("expected default host 'localhost', got %s", cfg.Database.Host)
	}
	if cfg.Metadata.Path != "metadata.json" {
		t.Errorf("expected default metadata path, got %s", cfg.Metadata.Path)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := chdirTemp(t)

	configContent := `
database:
  dialect: postgres
  host: db.internal
  port: 5433
  user: breeze
  password: secret
  name: northwind
metadata:
  path: schema/northwind.json
  naming_convention: camelCase
log:
  level: debug
  development: true
`
	if err := os.WriteFile(filepath.Join(tmpDir, "breeze.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Database.Dialect != "postgres" {
		t.Errorf("expected dialect postgres, got %s", cfg.Database.Dialect)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("expected port 5433, got %d", cfg.Database.Port)
	}
	if cfg.Metadata.NamingConvention != "camelCase" {
		t.Errorf("expected camelCase, got %s", cfg.Metadata.NamingConvention)
	}
	if !cfg.Log.Development {
		t.Error("expected development logging")
	}

	conn := cfg.Database.Connection()
	if conn.Host != "db.internal:5433" {
		t.Errorf("expected host with port, got %s", conn.Host)
	}
	if conn.DBName != "northwind" || conn.User != "breeze" || conn.Password != "secret" {
		t.Errorf("unexpected connection config: %+v", conn)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	tmpDir := chdirTemp(t)

	path := filepath.Join(tmpDir, "custom.yaml")
	if err := os.WriteFile(path, []byte("database:\n  dialect: sqlite\n  name: ':memory:'\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Database.Dialect != "sqlite" || cfg.Database.Name != ":memory:" {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}

	if _, err := Load(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	tmpDir := chdirTemp(t)

	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("BREEZE_DATABASE_USER=fromdotenv\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("BREEZE_DATABASE_NAME", "fromenv")
	t.Setenv("BREEZE_DATABASE_DIALECT", "sqlserver")
	t.Cleanup(func() { os.Unsetenv("BREEZE_DATABASE_USER") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Database.Name != "fromenv" {
		t.Errorf("expected env override, got %s", cfg.Database.Name)
	}
	if cfg.Database.Dialect != "sqlserver" {
		t.Errorf("expected sqlserver, got %s", cfg.Database.Dialect)
	}
	if cfg.Database.User != "fromdotenv" {
		t.Errorf("expected value from .env, got %s", cfg.Database.User)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  Config{Database: DatabaseConfig{Dialect: "mysql"}, Log: LogConfig{Level: "info"}},
		},
		{
			name:    "unknown dialect",
			cfg:     Config{Database: DatabaseConfig{Dialect: "oracle"}},
			wantErr: true,
		},
		{
			name:    "port out of range",
			cfg:     Config{Database: DatabaseConfig{Dialect: "mysql", Port: 70000}},
			wantErr: true,
		},
		{
			name:    "unknown naming convention",
			cfg:     Config{Database: DatabaseConfig{Dialect: "mysql"}, Metadata: MetadataConfig{NamingConvention: "kebab"}},
			wantErr: true,
		},
		{
			name:    "bad log level",
			cfg:     Config{Database: DatabaseConfig{Dialect: "mysql"}, Log: LogConfig{Level: "chatty"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
