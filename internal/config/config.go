package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the dashboard needs to run. Values come from the
// environment (optionally seeded from a .env file), with sensible defaults
// for local development against a backend on :8000.
type Config struct {
	ListenAddr string // HTTP listen address for the dashboard itself
	DBPath     string // path to the SQLite session database
	APIBaseURL string // base URL of the remote dispensing backend

	RequestTimeout time.Duration // per-request timeout for backend calls
	SessionTTL     time.Duration // how long a login stays valid
	HealthInterval time.Duration // backend reachability poll interval
}

// Load reads configuration from the environment. A missing .env file is not
// an error; production deployments set real environment variables.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file, using process environment")
	}

	return Config{
		ListenAddr:     getenv("DASHBOARD_ADDR", ":8080"),
		DBPath:         getenv("DASHBOARD_DB", "dashboard.db"),
		APIBaseURL:     getenv("API_BASE_URL", "http://localhost:8000"),
		RequestTimeout: getduration("API_TIMEOUT", 30*time.Second),
		SessionTTL:     getduration("SESSION_TTL", 30*24*time.Hour),
		HealthInterval: getduration("HEALTH_INTERVAL", 2*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
