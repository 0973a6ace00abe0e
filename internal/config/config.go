package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// FX provider; empty APIKey selects the mock source
	FXAPIBase   string
	FXAPIKey    string
	FXPivot     string
	MarkupPct   decimal.Decimal
	QuoteTTL    time.Duration
	QuoteReuse  string // "multi" or "single"
	FeePct      decimal.Decimal
	// Rate cache
	CacheBackend   string // "memory" or "redis"
	RateCacheTTL   time.Duration
	SymbolCacheTTL time.Duration
	// Payment execution
	ExecAPIBase string
	ExecAPIKey  string
	// Worker
	WorkerPoll      time.Duration
	WorkerBatchSize int
	// Outbound requests
	RequestTimeout time.Duration
	// Redis (cache + idempotency)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func decDef(s string, def string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.RequireFromString(def)
	}
	return d
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:             getEnv("ENV", "local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		FXAPIBase:       getEnv("FX_API_BASE", "https://data.fixer.io/api"),
		FXAPIKey:        getEnv("FX_API_KEY", ""),
		FXPivot:         getEnv("FX_PIVOT", "EUR"),
		MarkupPct:       decDef(getEnv("FX_MARKUP_PCT", "0.005"), "0.005"),
		QuoteTTL:        time.Duration(atoiDef(getEnv("QUOTE_VALIDITY_SEC", "120"), 120)) * time.Second,
		QuoteReuse:      getEnv("QUOTE_REUSE", "multi"),
		FeePct:          decDef(getEnv("PAYMENT_FEE_PCT", "0.001"), "0.001"),
		CacheBackend:    getEnv("CACHE_BACKEND", "memory"),
		RateCacheTTL:    time.Duration(atoiDef(getEnv("RATE_CACHE_TTL_MS", "1800000"), 1800000)) * time.Millisecond,
		SymbolCacheTTL:  time.Duration(atoiDef(getEnv("SYMBOL_CACHE_TTL_MS", "86400000"), 86400000)) * time.Millisecond,
		ExecAPIBase:     getEnv("EXEC_API_BASE", ""),
		ExecAPIKey:      getEnv("EXEC_API_KEY", ""),
		WorkerPoll:      time.Duration(atoiDef(getEnv("WORKER_POLL_MS", "1000"), 1000)) * time.Millisecond,
		WorkerBatchSize: atoiDef(getEnv("WORKER_BATCH_LIMIT", "10"), 10),
		RequestTimeout:  time.Duration(atoiDef(getEnv("REQUEST_TIMEOUT_MS", "3000"), 3000)) * time.Millisecond,
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:        time.Duration(atoiDef(getEnv("IDEMPOTENCY_TTL_MS", "86400000"), 86400000)) * time.Millisecond,
	}
}
