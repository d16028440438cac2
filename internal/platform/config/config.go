package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr            string
	DatabaseURL     string
	AdminToken      string
	JWTSigningKey   string
	TrialDuration   time.Duration
	SweepInterval   time.Duration
	AuditBufferSize int
	SeedDemoData    bool
	Environment     string
	LogLevel        string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:            getEnv("VENDO_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("VENDO_DATABASE_URL"),
		AdminToken:      getEnv("VENDO_ADMIN_TOKEN", "dev-admin-token-change-in-production"),
		JWTSigningKey:   getEnv("VENDO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TrialDuration:   getDuration("VENDO_TRIAL_DURATION", 7*24*time.Hour),
		SweepInterval:   getDuration("VENDO_SWEEP_INTERVAL", time.Hour),
		AuditBufferSize: getInt("VENDO_AUDIT_BUFFER", 1024),
		SeedDemoData:    os.Getenv("VENDO_SEED_DEMO") == "true",
		Environment:     getEnv("VENDO_ENV", "development"),
		LogLevel:        getEnv("VENDO_LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
