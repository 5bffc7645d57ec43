package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"merchantdash/internal/app"
	"merchantdash/internal/backend"
	"merchantdash/internal/config"
	"merchantdash/internal/dashboard"
	"merchantdash/internal/identity"
	"merchantdash/internal/location"
	"merchantdash/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using environment variables")
	}

	cfg := config.Load()
	if path := strings.TrimSpace(os.Getenv("DASHBOARD_CONFIG")); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			log.Fatalf("config file failed: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("Using in-memory session storage, sessions will not survive restart")
		sessions = session.NewMemoryStore()
	}

	api := backend.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	provider := identity.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.HTTPTimeout)
	gate := session.NewGate(provider, api, sessions, session.Options{
		SessionName: cfg.SessionName,
		TTL:         cfg.SessionTTL,
		JWTSecret:   cfg.SupabaseJWTSecret,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := dashboard.NewMetrics(reg)

	syncer := dashboard.NewSyncer(api, dashboard.NewStore(), dashboard.SyncOptions{
		ForecastConcurrency: cfg.ForecastConcurrency,
		Timeout:             cfg.SyncTimeout,
		Metrics:             metrics,
	})
	service := app.New(app.Deps{
		Gate:            gate,
		Locator:         resolver(cfg),
		LocationTimeout: cfg.LocationTimeout,
		Syncer:          syncer,
		Commands:        dashboard.NewCommands(api, syncer, metrics),
		SessionStore:    sessions,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.SyncTimeout+cfg.LocationTimeout)
	if err := service.Start(startCtx); err != nil {
		log.Printf("WARNING: initial sync failed (retry with POST /api/sync): %v", err)
	}
	cancelStart()

	server := app.NewHTTPServer(service, cfg.CORSOrigin, reg).App()
	go func() {
		log.Printf("Merchant dashboard listening on %s", cfg.Addr)
		if err := server.Listen(cfg.Addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func resolver(cfg config.Config) location.Resolver {
	switch cfg.LocationMode {
	case "static":
		return location.Static{Coordinate: location.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude}}
	case "ip":
		return location.NewIPLookup(cfg.GeoLookupURL)
	default:
		return location.Noop{}
	}
}
