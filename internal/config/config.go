package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Persistence
	DatabaseURL string // Postgres DSN, required

	// Redis (notifications + stats mirror)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDialTimeout    time.Duration
	RedisReadTimeout    time.Duration
	RedisWriteTimeout   time.Duration
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to keep retrying the initial connect
	RedisRetryInterval  time.Duration // initial wait between connect retries, doubles
	RedisPingTimeout    time.Duration

	// Scraping
	FetchBaseURL   string        // source site root, ex: https://bazos.cz
	FetchTimeout   time.Duration // per-request timeout (default 10s)
	FetchMaxPages  int           // result pages fetched per term
	FetchPageDelay time.Duration // polite delay between result pages

	// Reconciliation sweep
	CheckInterval      time.Duration // full sweep interval (default 300s)
	PersistMaxAttempts int           // retries for a contended diff commit
	PersistBaseDelay   time.Duration // first retry delay, doubles

	// Lifecycle sweeps
	NewTagWindow         time.Duration // how long a listing stays "new" (default 6h)
	NewTagSweepInterval  time.Duration
	RetentionWindow      time.Duration // soft-deleted rows older than this are purged (default 30d)
	RetentionSweepEvery  time.Duration
	WatchlistFile        string // optional yaml seed of subscribers/terms, empty = disabled
	AdsDefaultLimit      int    // default page size for the recent-ads endpoint
	CheckTriggerBurst    int    // rate-limit burst for the manual check endpoint
	CheckTriggerPerMin   int    // rate-limit refill per IP per minute
	TrustProxy           bool   // resolve client IPs from proxy headers
}

func Load() *Config {
	cfg := &Config{
		ListenPort:      getenv("ADWATCH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ADWATCH_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("ADWATCH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ADWATCH_PRETTY_LOG", false),

		DatabaseURL: requireEnv("ADWATCH_DATABASE_URL"),

		RedisAddr:           requireEnv("ADWATCH_REDIS_ADDR"),
		RedisUser:           getenv("ADWATCH_REDIS_USERNAME", ""),
		RedisPassword:       getenv("ADWATCH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("ADWATCH_REDIS_DB", 0),
		RedisDialTimeout:    mustDuration("ADWATCH_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisReadTimeout:    mustDuration("ADWATCH_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWriteTimeout:   mustDuration("ADWATCH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       getenvInt("ADWATCH_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("ADWATCH_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("ADWATCH_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisPingTimeout:    mustDuration("ADWATCH_REDIS_PING_TIMEOUT", 5*time.Second),

		FetchBaseURL:   getenv("ADWATCH_FETCH_BASE_URL", "https://bazos.cz"),
		FetchTimeout:   mustDuration("ADWATCH_FETCH_TIMEOUT", 10*time.Second),
		FetchMaxPages:  getenvInt("ADWATCH_FETCH_MAX_PAGES", 5),
		FetchPageDelay: mustDuration("ADWATCH_FETCH_PAGE_DELAY", 500*time.Millisecond),

		CheckInterval:      mustDuration("ADWATCH_CHECK_INTERVAL", 300*time.Second),
		PersistMaxAttempts: getenvInt("ADWATCH_PERSIST_MAX_ATTEMPTS", 3),
		PersistBaseDelay:   mustDuration("ADWATCH_PERSIST_BASE_DELAY", 100*time.Millisecond),

		NewTagWindow:        mustDuration("ADWATCH_NEW_TAG_WINDOW", 6*time.Hour),
		NewTagSweepInterval: mustDuration("ADWATCH_NEW_TAG_SWEEP_INTERVAL", 30*time.Minute),
		RetentionWindow:     mustDuration("ADWATCH_RETENTION_WINDOW", 30*24*time.Hour),
		RetentionSweepEvery: mustDuration("ADWATCH_RETENTION_SWEEP_INTERVAL", 24*time.Hour),
		WatchlistFile:       getenv("ADWATCH_WATCHLIST_FILE", ""),
		AdsDefaultLimit:     getenvInt("ADWATCH_ADS_DEFAULT_LIMIT", 100),
		CheckTriggerBurst:   getenvInt("ADWATCH_CHECK_TRIGGER_BURST", 3),
		CheckTriggerPerMin:  getenvInt("ADWATCH_CHECK_TRIGGER_PER_MIN", 6),
		TrustProxy:          mustBool("ADWATCH_TRUST_PROXY", false),
	}

	if cfg.PersistMaxAttempts < 1 {
		panic(fmt.Sprintf("FATAL: ADWATCH_PERSIST_MAX_ATTEMPTS must be >= 1, got %d", cfg.PersistMaxAttempts))
	}
	if cfg.FetchMaxPages < 1 {
		panic(fmt.Sprintf("FATAL: ADWATCH_FETCH_MAX_PAGES must be >= 1, got %d", cfg.FetchMaxPages))
	}

	return cfg
}

// helpers

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
