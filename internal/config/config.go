// Package config loads moodmix configuration from the environment and an
// optional .env file.
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

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = "127.0.0.1:8080"

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Storage   StorageConfig
	Providers ProvidersConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	CatalogPath string // optional JSON catalog replacing the built-in one
	RoomIdleTTL time.Duration
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RateLimitRPS   float64 // requests per second per client; 0 disables
	RateLimitBurst int
	CORSOrigins    []string
}

// StorageConfig selects and configures persistence.
type StorageConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// ProvidersConfig holds credentials for external services.
// Empty values disable the corresponding integration.
type ProvidersConfig struct {
	EmotionAPIURL string
	LastFMAPIKey  string
	SpotifyID     string
	SpotifySecret string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	rps, err := getFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}
	burst, err := getInt("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}
	roomTTL, err := getDuration("ROOM_IDLE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("MOODMIX_ENV", "development"),
			CatalogPath: getEnv("CATALOG_PATH", ""),
			RoomIdleTTL: roomTTL,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Addr:           getEnv("MOODMIX_ADDR", DefaultAddr),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
			CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "")),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			SQLitePath:  getEnv("SQLITE_PATH", "moodmix.db"),
		},
		Providers: ProvidersConfig{
			EmotionAPIURL: getEnv("EMOTION_API_URL", ""),
			LastFMAPIKey:  getEnv("LASTFM_API_KEY", ""),
			SpotifyID:     getEnv("SPOTIFY_ID", ""),
			SpotifySecret: getEnv("SPOTIFY_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want memory, postgres or sqlite)", c.Storage.Driver)
	}

	if c.App.RoomIdleTTL <= 0 {
		return errors.New("ROOM_IDLE_TTL must be positive")
	}
	if c.Server.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1")
	}
	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// SpotifyEnabled reports whether Spotify app credentials are configured.
func (p ProvidersConfig) SpotifyEnabled() bool {
	return p.SpotifyID != "" && p.SpotifySecret != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
