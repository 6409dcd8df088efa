// Package config holds runtime configuration. Everything is settable
// through environment variables; the optional YAML policy file carries
// the moderation policy itself (seed keywords, safe words, protected
// participants).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend selects the durable document store.
type StoreBackend string

const (
	StoreMem      StoreBackend = "mem"      // in-process, single node
	StorePostgres StoreBackend = "postgres" // jsonb documents via pgx
)

// CacheBackend selects the ephemeral TTL store.
type CacheBackend string

const (
	CacheMem   CacheBackend = "mem"   // in-process go-cache
	CacheRedis CacheBackend = "redis" // shared redis
)

// Config holds global settings for the warden service.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	HTTPPort   string // HTTP API listen port (default: "3000")
	PolicyPath string // Path to the YAML policy file (optional)

	// === Storage ===
	StoreBackend StoreBackend // "mem" or "postgres"
	PostgresDSN  string       // DSN when StoreBackend is "postgres"
	CacheBackend CacheBackend // "mem" or "redis"
	RedisURL     string       // URL when CacheBackend is "redis"

	// === Moderation ===
	TopActor     string        // identity allowed to lift permanent bans
	BotNicknames []string      // references to the bot that are not mention abuse
	EffectPause  time.Duration // delay between side-effect steps

	// === Timers ===
	BanSweepInterval  time.Duration // ban-expiry sweep period (default: 1m)
	ReconcileInterval time.Duration // reconciliation period (default: 1h)
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		HTTPPort:   GetEnv("WARDEN_HTTP_PORT", "3000"),
		PolicyPath: GetEnv("WARDEN_POLICY_PATH", ""),

		StoreBackend: StoreBackend(GetEnv("WARDEN_STORE", "mem")),
		PostgresDSN:  GetEnv("WARDEN_POSTGRES_DSN", ""),
		CacheBackend: CacheBackend(GetEnv("WARDEN_CACHE", "mem")),
		RedisURL:     GetEnv("WARDEN_REDIS_URL", "redis://localhost:6379"),

		TopActor:     GetEnv("WARDEN_TOP_ACTOR", ""),
		BotNicknames: GetEnvSlice("WARDEN_BOT_NICKNAMES", []string{"warden"}),
		EffectPause:  time.Duration(clampInt(GetEnvInt("WARDEN_EFFECT_PAUSE_MS", 2000), 0, 60000)) * time.Millisecond,

		BanSweepInterval:  time.Duration(clampInt(GetEnvInt("WARDEN_BAN_SWEEP_SECONDS", 60), 5, 3600)) * time.Second,
		ReconcileInterval: time.Duration(clampInt(GetEnvInt("WARDEN_RECONCILE_SECONDS", 3600), 60, 86400)) * time.Second,
	}
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
