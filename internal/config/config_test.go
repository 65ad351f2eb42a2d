package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.Backend != "json" || cfg.Storage.Path != ".pagebuilder" {
		t.Errorf("storage defaults = %+v", cfg.Storage)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.CSRF {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Log.Level != "info" || cfg.Export.Dir != "dist" {
		t.Errorf("log/export defaults = %+v %+v", cfg.Log, cfg.Export)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pagebuilder.yaml")
	content := strings.Join([]string{
		"storage:",
		"  backend: sqlite",
		"  path: data",
		"server:",
		"  addr: \":9000\"",
		"  allowed_origins:",
		"    - http://localhost:3000",
		"log:",
		"  level: debug",
	}, "\n")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAGEBUILDER_SERVER_ADDR", ":7000")
	t.Setenv("PAGEBUILDER_SERVER_CSRF", "true")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.Path != "data" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("env override ignored: addr = %q", cfg.Server.Addr)
	}
	if !cfg.Server.CSRF {
		t.Error("env override ignored: csrf = false")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("allowed origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of a missing explicit file returned no error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"json", Config{Storage: StorageConfig{Backend: "json", Path: "x"}, Server: ServerConfig{Addr: ":1"}}, false},
		{"upper case backend", Config{Storage: StorageConfig{Backend: "SQLite", Path: "x"}, Server: ServerConfig{Addr: ":1"}}, false},
		{"mongo without uri", Config{Storage: StorageConfig{Backend: "mongo", MongoDatabase: "db"}, Server: ServerConfig{Addr: ":1"}}, true},
		{"mongo", Config{Storage: StorageConfig{Backend: "mongo", MongoURI: "mongodb://h", MongoDatabase: "db"}, Server: ServerConfig{Addr: ":1"}}, false},
		{"unknown backend", Config{Storage: StorageConfig{Backend: "redis", Path: "x"}, Server: ServerConfig{Addr: ":1"}}, true},
		{"no path", Config{Storage: StorageConfig{Backend: "json"}, Server: ServerConfig{Addr: ":1"}}, true},
		{"no addr", Config{Storage: StorageConfig{Backend: "json", Path: "x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
