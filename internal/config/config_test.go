package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
cache:
  import_jobs_ttl: 5m
database:
  driver: sqlite
  path: ` + filepath.Join(dir, "test.db") + `
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Cache.ImportJobsTTL != 5*time.Minute {
		t.Errorf("Cache.ImportJobsTTL = %v, want 5m", cfg.Cache.ImportJobsTTL)
	}
	if cfg.Cache.IngestionPointsTTL != 30*time.Minute {
		t.Errorf("Cache.IngestionPointsTTL = %v, want 30m default", cfg.Cache.IngestionPointsTTL)
	}
	if cfg.Storage.MaxClients != 64 {
		t.Errorf("Storage.MaxClients = %d, want 64", cfg.Storage.MaxClients)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	if got, want := pg.DSN(), "host=db port=5432 user=u password=p dbname=n sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	lite := DatabaseConfig{Driver: "sqlite", Path: "/tmp/x.db"}
	if got := lite.DSN(); got != "/tmp/x.db" {
		t.Errorf("DSN() = %q, want /tmp/x.db", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			Cache:    CacheConfig{IngestionPointsTTL: time.Minute, ImportJobsTTL: time.Minute, PageSize: 10},
			Archive:  ArchiveConfig{BaseURL: "http://archive"},
			Storage:  StorageConfig{MaxClients: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"zero ttl", func(c *Config) { c.Cache.ImportJobsTTL = 0 }, true},
		{"no upstream", func(c *Config) { c.Archive.BaseURL = "" }, true},
		{"fixture upstream", func(c *Config) { c.Archive.BaseURL = ""; c.Archive.FixtureDir = "testdata" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
