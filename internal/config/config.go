package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data sources
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Config 应用配置
type Config struct {
	Port       string
	DataSource string // csv or sqlite
	DataPath   string // CSV dataset
	DBPath     string // SQLite record store

	CacheMaxSize      int
	CacheTTL          time.Duration
	DefaultResolution int

	AllowedOrigins []string
	JWTSecret      string // empty disables auth on cache management

	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

// Load 加载配置. A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", ":8080"),
		DataSource:        strings.ToLower(getEnv("DATA_SOURCE", SourceCSV)),
		DataPath:          getEnv("DATA_PATH", "../data/geo_locations_astana_hackathon.csv"),
		DBPath:            getEnv("DB_PATH", "./data/records.db"),
		AllowedOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		CacheMaxSize:      100,
		CacheTTL:          time.Hour,
		DefaultResolution: 10,
		RateLimitRPS:      20,
		RateLimitBurst:    40,
	}

	var err error
	if cfg.CacheMaxSize, err = getInt("CACHE_MAX_SIZE", cfg.CacheMaxSize); err != nil {
		return nil, err
	}
	if cfg.DefaultResolution, err = getInt("DEFAULT_RESOLUTION", cfg.DefaultResolution); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return nil, err
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if cfg.CacheTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error
	if c.DataSource != SourceCSV && c.DataSource != SourceSQLite {
		errs = append(errs, fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", SourceCSV, SourceSQLite, c.DataSource))
	}
	if c.CacheMaxSize <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_SIZE must be positive, got %d", c.CacheMaxSize))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if c.DefaultResolution < 0 || c.DefaultResolution > 15 {
		errs = append(errs, fmt.Errorf("DEFAULT_RESOLUTION must be within 0-15, got %d", c.DefaultResolution))
	}
	if len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ORIGINS must list at least one origin"))
	}
	for _, o := range c.AllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			errs = append(errs, fmt.Errorf("CORS_ORIGINS entry %q must be \"*\" or start with http:// or https://", o))
		}
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %g", c.RateLimitRPS))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
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
