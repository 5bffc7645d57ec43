package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8790" {
		t.Fatalf("expected default addr :8790, got %q", cfg.Addr)
	}
	if cfg.APIBaseURL != "http://127.0.0.1:8000" {
		t.Fatalf("unexpected api base url %q", cfg.APIBaseURL)
	}
	if cfg.ForecastConcurrency != 8 {
		t.Fatalf("expected forecast concurrency 8, got %d", cfg.ForecastConcurrency)
	}
	if cfg.SyncTimeout != 20*time.Second {
		t.Fatalf("expected sync timeout 20s, got %s", cfg.SyncTimeout)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("LOCATION_MODE", "STATIC")
	t.Setenv("LOCATION_LAT", "-6.2")
	t.Setenv("LOCATION_LON", "106.8")
	t.Setenv("FORECAST_CONCURRENCY", "3")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.LocationMode != "static" {
		t.Fatalf("expected lower-cased location mode, got %q", cfg.LocationMode)
	}
	if cfg.Latitude != -6.2 || cfg.Longitude != 106.8 {
		t.Fatalf("unexpected coordinate %v,%v", cfg.Latitude, cfg.Longitude)
	}
	if cfg.ForecastConcurrency != 3 {
		t.Fatalf("expected concurrency 3, got %d", cfg.ForecastConcurrency)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("expected invalid int to fall back to 10s, got %s", cfg.HTTPTimeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error without supabase settings")
	}
	if !strings.Contains(err.Error(), "SUPABASE_URL is required") || !strings.Contains(err.Error(), "SUPABASE_KEY is required") {
		t.Fatalf("expected both supabase errors, got %v", err)
	}

	cfg.SupabaseURL = "https://project.supabase.co"
	cfg.SupabaseAnonKey = "anon"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cfg.LocationMode = "gps"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown location mode to fail validation")
	}
}

func TestLoadFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	content := `
api_base_url: https://file.example.com
supabase:
  url: https://project.supabase.co
  anon_key: file-key
location:
  mode: static
  lat: 1.5
  lon: 2.5
  timeout: 750ms
sync:
  timeout: 45s
  forecast_concurrency: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SUPABASE_KEY", "env-key")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.APIBaseURL != "https://file.example.com" {
		t.Fatalf("expected file api base url, got %q", cfg.APIBaseURL)
	}
	if cfg.SupabaseAnonKey != "env-key" {
		t.Fatalf("expected env to override file key, got %q", cfg.SupabaseAnonKey)
	}
	if cfg.LocationTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms location timeout, got %s", cfg.LocationTimeout)
	}
	if cfg.SyncTimeout != 45*time.Second {
		t.Fatalf("expected 45s sync timeout, got %s", cfg.SyncTimeout)
	}
	if cfg.ForecastConcurrency != 2 || cfg.Latitude != 1.5 || cfg.Longitude != 2.5 {
		t.Fatalf("unexpected file values: %+v", cfg)
	}
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	if err := os.WriteFile(path, []byte("sync:\n  timeout: soon\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "sync.timeout") {
		t.Fatalf("expected sync.timeout parse error, got %v", err)
	}
}

func TestLoadFileKeepsSubSecondDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	content := `
supabase:
  url: https://project.supabase.co
  anon_key: file-key
sync:
  http_timeout: 1500ms
  timeout: 500ms
session:
  ttl: 90m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.HTTPTimeout != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s http timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.SyncTimeout != 500*time.Millisecond {
		t.Fatalf("expected 500ms sync timeout, got %s", cfg.SyncTimeout)
	}
	if cfg.SessionTTL != 90*time.Minute {
		t.Fatalf("expected 90m session ttl, got %s", cfg.SessionTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	t.Setenv("SYNC_TIMEOUT_SECONDS", "3")
	cfg, err = LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.SyncTimeout != 3*time.Second || cfg.HTTPTimeout != 1500*time.Millisecond {
		t.Fatalf("expected env sync timeout 3s and file http timeout 1.5s, got %s and %s", cfg.SyncTimeout, cfg.HTTPTimeout)
	}
}
