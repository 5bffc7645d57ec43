package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for YAML files. Durations use Go syntax ("10s").
type FileConfig struct {
	Addr       string `yaml:"addr"`
	APIBaseURL string `yaml:"api_base_url"`
	Supabase   struct {
		URL       string `yaml:"url"`
		AnonKey   string `yaml:"anon_key"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"supabase"`
	Session struct {
		RedisURL string `yaml:"redis_url"`
		Name     string `yaml:"name"`
		TTL      string `yaml:"ttl"`
	} `yaml:"session"`
	Location struct {
		Mode      string  `yaml:"mode"`
		Latitude  float64 `yaml:"lat"`
		Longitude float64 `yaml:"lon"`
		LookupURL string  `yaml:"lookup_url"`
		Timeout   string  `yaml:"timeout"`
	} `yaml:"location"`
	Sync struct {
		HTTPTimeout         string `yaml:"http_timeout"`
		Timeout             string `yaml:"timeout"`
		ForecastConcurrency int    `yaml:"forecast_concurrency"`
	} `yaml:"sync"`
	CORSOrigin string `yaml:"cors_origin"`
}

// LoadFile reads a YAML config and applies environment overrides on top.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	base, err := fc.merge(Load())
	if err != nil {
		return Config{}, err
	}
	return fromEnv(base), nil
}

func (fc FileConfig) merge(base Config) (Config, error) {
	setString(&base.Addr, fc.Addr)
	setString(&base.APIBaseURL, fc.APIBaseURL)
	setString(&base.SupabaseURL, fc.Supabase.URL)
	setString(&base.SupabaseAnonKey, fc.Supabase.AnonKey)
	setString(&base.SupabaseJWTSecret, fc.Supabase.JWTSecret)
	setString(&base.RedisURL, fc.Session.RedisURL)
	setString(&base.SessionName, fc.Session.Name)
	setString(&base.LocationMode, fc.Location.Mode)
	setString(&base.GeoLookupURL, fc.Location.LookupURL)
	setString(&base.CORSOrigin, fc.CORSOrigin)
	if fc.Location.Latitude != 0 || fc.Location.Longitude != 0 {
		base.Latitude = fc.Location.Latitude
		base.Longitude = fc.Location.Longitude
	}
	if fc.Sync.ForecastConcurrency != 0 {
		base.ForecastConcurrency = fc.Sync.ForecastConcurrency
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"session.ttl", fc.Session.TTL, &base.SessionTTL},
		{"location.timeout", fc.Location.Timeout, &base.LocationTimeout},
		{"sync.http_timeout", fc.Sync.HTTPTimeout, &base.HTTPTimeout},
		{"sync.timeout", fc.Sync.Timeout, &base.SyncTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return base, nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
