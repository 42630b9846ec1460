package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures process-level configuration so main stays lean. Empty
// PostgresURL selects the in-memory store; empty RedisURL keeps event fan-out
// in-process only.
type Config struct {
	Addr        string
	PostgresURL string
	RedisURL    string

	// StoreTimeout bounds every registry operation; past it callers get
	// an unavailable error instead of a hang.
	StoreTimeout time.Duration

	// SnapshotInterval is the staleness backstop: feeds push a sync hint on
	// this cadence so subscribers converge even after missed events.
	SnapshotInterval time.Duration

	// SubscriberBuffer is the per-subscription event buffer; overflow drops
	// the event and lets the snapshot backstop repair the view.
	SubscriberBuffer int

	PortalSigningKey string
	PortalTokenTTL   time.Duration

	// CodeAttempts bounds security-code regeneration on collision.
	CodeAttempts int

	// PortalPageSize bounds the parent portal snapshot.
	PortalPageSize int

	DirectoryURL string
}

// FromEnv builds a Config from KIDGATE_* environment variables, reading an
// optional .env first for local development.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:             getenv("KIDGATE_ADDR", ":8080"),
		PostgresURL:      os.Getenv("KIDGATE_POSTGRES_URL"),
		RedisURL:         os.Getenv("KIDGATE_REDIS_URL"),
		StoreTimeout:     getduration("KIDGATE_STORE_TIMEOUT", 5*time.Second),
		SnapshotInterval: getduration("KIDGATE_SNAPSHOT_INTERVAL", 30*time.Second),
		SubscriberBuffer: getint("KIDGATE_SUBSCRIBER_BUFFER", 16),
		PortalSigningKey: getenv("KIDGATE_PORTAL_SIGNING_KEY", "dev-secret-change-in-production"),
		PortalTokenTTL:   getduration("KIDGATE_PORTAL_TOKEN_TTL", 4*time.Hour),
		CodeAttempts:     getint("KIDGATE_CODE_ATTEMPTS", 5),
		PortalPageSize:   getint("KIDGATE_PORTAL_PAGE_SIZE", 20),
		DirectoryURL:     os.Getenv("KIDGATE_DIRECTORY_URL"),
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
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
