// Package appconfig resolves process-wide configuration once per
// process, the way cache-manager/service.go's initService/sync.Once
// idiom resolves its Service singleton, re-architected per the
// "process-wide singletons" design note: an immutable value built on
// first access, read-only afterward.
package appconfig

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// AppConfig carries every upstream base URL, API key, and the Supabase
// connection string, each resolved once from the environment.
type AppConfig struct {
	HiroAPIBaseURL      string
	HiroAPIKey          string
	StxCityBaseURL      string
	SupabaseURL         string
	SupabaseServiceKey  string
	BNSBaseURL          string
	ContractCallBaseURL string

	DefaultCacheTTL time.Duration
	AlarmsEnabled   bool
}

var (
	cfg  *AppConfig
	once sync.Once
)

// Get returns the process-wide AppConfig, resolving it from the
// environment on first call. Every later call returns the same value;
// the config is treated as immutable after that first resolution.
func Get() *AppConfig {
	once.Do(func() {
		cfg = &AppConfig{
			HiroAPIBaseURL:      envOr("HIRO_API_BASE_URL", "https://api.hiro.so"),
			HiroAPIKey:          os.Getenv("HIRO_API_KEY"),
			StxCityBaseURL:      envOr("STXCITY_API_BASE_URL", "https://api.stx.city"),
			SupabaseURL:         os.Getenv("SUPABASE_URL"),
			SupabaseServiceKey:  os.Getenv("SUPABASE_SERVICE_KEY"),
			BNSBaseURL:          envOr("BNS_API_BASE_URL", "https://api.hiro.so"),
			ContractCallBaseURL: envOr("CONTRACT_CALL_BASE_URL", "https://api.hiro.so"),
			DefaultCacheTTL:     time.Duration(envInt64("DEFAULT_CACHE_TTL_SECONDS", 300)) * time.Second,
			AlarmsEnabled:       envBool("ALARMS_ENABLED", true),
		}
	})
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
