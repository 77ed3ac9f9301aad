package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"travel-planner/internal/amap"
	"travel-planner/internal/cache"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	AMap    AMapConfig
	Planner PlannerConfig
	Cache   CacheConfig
	GeoIP   GeoIPConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	GinMode        string
	AllowedOrigins []string
}

// AMapConfig holds the map provider credentials
type AMapConfig struct {
	WebKey  string
	BaseURL string
	Timeout time.Duration
}

// PlannerConfig tunes itinerary planning
type PlannerConfig struct {
	Timeout                 time.Duration
	AllowUnfilteredFallback bool
}

// CacheConfig selects the lookup cache backend
type CacheConfig struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// GeoIPConfig points at an optional GeoLite2-City database
type GeoIPConfig struct {
	DBPath string
}

// ErrMissingKey is returned when the provider key is not configured
type ErrMissingKey struct {
	Env string
}

func (e *ErrMissingKey) Error() string {
	return fmt.Sprintf("%s is required", e.Env)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:           getEnv("SERVER_ADDR", "127.0.0.1:8080"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		AMap: AMapConfig{
			WebKey:  getEnv("AMAP_WEB_KEY", ""),
			BaseURL: getEnv("AMAP_BASE_URL", amap.DefaultBaseURL),
			Timeout: getEnvAsDuration("AMAP_TIMEOUT", 10*time.Second),
		},
		Planner: PlannerConfig{
			Timeout:                 getEnvAsDuration("PLAN_TIMEOUT", 25*time.Second),
			AllowUnfilteredFallback: getEnvAsBool("POI_UNFILTERED_FALLBACK", false),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", cache.BackendMemory),
			TTL:           getEnvAsDuration("CACHE_TTL", 24*time.Hour),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			SQLitePath:    getEnv("SQLITE_CACHE_PATH", ""),
		},
		GeoIP: GeoIPConfig{
			DBPath: getEnv("GEOIP_DB_PATH", ""),
		},
	}

	if cfg.AMap.WebKey == "" {
		return nil, &ErrMissingKey{Env: "AMAP_WEB_KEY"}
	}

	return cfg, nil
}

// CacheStoreConfig converts the cache section for cache.New
func (c *Config) CacheStoreConfig() cache.Config {
	return cache.Config{
		Backend:       c.Cache.Backend,
		DefaultTTL:    c.Cache.TTL,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		SQLitePath:    c.Cache.SQLitePath,
	}
}

// AMapClientConfig converts the provider section for amap.NewClient
func (c *Config) AMapClientConfig() amap.Config {
	return amap.Config{
		BaseURL: c.AMap.BaseURL,
		Key:     c.AMap.WebKey,
		Timeout: c.AMap.Timeout,
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %v", key, defaultValue)
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
