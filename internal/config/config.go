package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr       string
	APIBaseURL string
	// Identity provider (Supabase GoTrue)
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	// Session persistence; empty RedisURL keeps sessions in memory
	RedisURL    string
	SessionName string
	SessionTTL  time.Duration
	// Location
	LocationMode    string
	Latitude        float64
	Longitude       float64
	GeoLookupURL    string
	LocationTimeout time.Duration
	// Sync
	HTTPTimeout         time.Duration
	SyncTimeout         time.Duration
	ForecastConcurrency int
	CORSOrigin          string
}

func Load() Config {
	return fromEnv(Config{
		Addr:                ":8790",
		APIBaseURL:          "http://127.0.0.1:8000",
		SessionName:         "default",
		SessionTTL:          30 * 24 * time.Hour,
		LocationMode:        "ip",
		GeoLookupURL:        "http://ip-api.com/json/",
		LocationTimeout:     5 * time.Second,
		HTTPTimeout:         10 * time.Second,
		SyncTimeout:         20 * time.Second,
		ForecastConcurrency: 8,
		CORSOrigin:          "*",
	})
}

// fromEnv overlays environment variables on base.
func fromEnv(base Config) Config {
	return Config{
		Addr:                getenv("DASHBOARD_ADDR", base.Addr),
		APIBaseURL:          strings.TrimRight(getenv("API_BASE_URL", base.APIBaseURL), "/"),
		SupabaseURL:         strings.TrimRight(getenv("SUPABASE_URL", base.SupabaseURL), "/"),
		SupabaseAnonKey:     getenv("SUPABASE_KEY", base.SupabaseAnonKey),
		SupabaseJWTSecret:   getenv("SUPABASE_JWT_SECRET", base.SupabaseJWTSecret),
		RedisURL:            getenv("REDIS_URL", base.RedisURL),
		SessionName:         getenv("DASHBOARD_SESSION_NAME", base.SessionName),
		SessionTTL:          getenvDuration("DASHBOARD_SESSION_TTL_SECONDS", time.Second, base.SessionTTL),
		LocationMode:        strings.ToLower(getenv("LOCATION_MODE", base.LocationMode)),
		Latitude:            getenvFloat("LOCATION_LAT", base.Latitude),
		Longitude:           getenvFloat("LOCATION_LON", base.Longitude),
		GeoLookupURL:        getenv("GEO_LOOKUP_URL", base.GeoLookupURL),
		LocationTimeout:     getenvDuration("LOCATION_TIMEOUT_MS", time.Millisecond, base.LocationTimeout),
		HTTPTimeout:         getenvDuration("HTTP_TIMEOUT_SECONDS", time.Second, base.HTTPTimeout),
		SyncTimeout:         getenvDuration("SYNC_TIMEOUT_SECONDS", time.Second, base.SyncTimeout),
		ForecastConcurrency: getenvInt("FORECAST_CONCURRENCY", base.ForecastConcurrency),
		CORSOrigin:          getenv("DASHBOARD_CORS_ORIGIN", base.CORSOrigin),
	}
}

// Validate reports every missing or out-of-range setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	}
	if c.SupabaseURL == "" {
		errs = append(errs, errors.New("SUPABASE_URL is required"))
	}
	if c.SupabaseAnonKey == "" {
		errs = append(errs, errors.New("SUPABASE_KEY is required"))
	}
	switch c.LocationMode {
	case "none", "ip", "static":
	default:
		errs = append(errs, fmt.Errorf("LOCATION_MODE %q must be one of none, ip, static", c.LocationMode))
	}
	if c.ForecastConcurrency <= 0 {
		errs = append(errs, errors.New("FORECAST_CONCURRENCY must be > 0"))
	}
	if c.HTTPTimeout <= 0 || c.SyncTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be > 0"))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// getenvDuration reads an integer count of unit. An unset or malformed value
// leaves fallback untouched, sub-unit precision included.
func getenvDuration(key string, unit, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return time.Duration(parsed) * unit
}
