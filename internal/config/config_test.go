package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := getDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}

	if cfg.Depth.MinScale != 0.2 || cfg.Depth.MaxScale != 1.2 {
		t.Errorf("Unexpected depth scale defaults: %f..%f", cfg.Depth.MinScale, cfg.Depth.MaxScale)
	}
	if cfg.Depth.MinRotation != 20 || cfg.Depth.MaxRotation != 75 {
		t.Errorf("Unexpected depth rotation defaults: %f..%f", cfg.Depth.MinRotation, cfg.Depth.MaxRotation)
	}
}

func TestNewFallsBackToDefaults(t *testing.T) {
	// No config.yaml in the test working directory.
	cfg := New()
	if cfg == nil {
		t.Fatal("New() returned nil")
	}
	if cfg.Server.Port != ":8080" {
		t.Errorf("Expected default port :8080, got %s", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: ":9000"
  mode: release
redis:
  addr: "redis:6379"
  ttl: 1h
depth:
  min_scale: 0.3
  max_scale: 1.5
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != ":9000" {
		t.Errorf("Expected port :9000, got %s", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("Expected release mode, got %s", cfg.Server.Mode)
	}
	if cfg.Redis.TTL != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", cfg.Redis.TTL)
	}
	if cfg.Depth.MinScale != 0.3 || cfg.Depth.MaxScale != 1.5 {
		t.Errorf("Expected overridden depth scales, got %f..%f", cfg.Depth.MinScale, cfg.Depth.MaxScale)
	}

	// Untouched sections keep their defaults.
	if cfg.Depth.MaxRotation != 75 {
		t.Errorf("Expected default max rotation 75, got %f", cfg.Depth.MaxRotation)
	}
	if cfg.Upload.MaxSize != 20*1024*1024 {
		t.Errorf("Expected default upload size, got %d", cfg.Upload.MaxSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := getDefaultConfig()

	cfg.Depth.MinScale = 2.0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when min_scale exceeds max_scale")
	}

	cfg = getDefaultConfig()
	cfg.Compose.SendQuality = 500
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for out-of-range send quality")
	}

	cfg = getDefaultConfig()
	cfg.Upload.AllowedTypes = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty allowed types")
	}
}
