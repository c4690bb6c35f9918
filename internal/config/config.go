package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alindq/go-road-disruptions/internal/models"
	"github.com/alindq/go-road-disruptions/internal/tfl"
)

type Config struct {
	Server  ServerConfig
	Feed    FeedConfig
	Map     MapConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type FeedConfig struct {
	URL             string
	RefreshInterval time.Duration
	Timeout         time.Duration
}

type MapConfig struct {
	DefaultLat  float64
	DefaultLon  float64
	DefaultZoom int
	FocusZoom   int
	PanDuration time.Duration
	SettleDelay time.Duration
	Bounds      models.BoundingBox
}

type DatabaseConfig struct {
	Enabled bool
	Path    string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Feed: FeedConfig{
			URL:             getEnv("FEED_URL", tfl.DefaultURL),
			RefreshInterval: getEnvDuration("FEED_REFRESH_INTERVAL", 30*time.Minute),
			Timeout:         getEnvDuration("FEED_TIMEOUT", 15*time.Second),
		},
		Map: MapConfig{
			// Central London at a city-wide zoom.
			DefaultLat:  getEnvFloat("MAP_DEFAULT_LAT", 51.5074),
			DefaultLon:  getEnvFloat("MAP_DEFAULT_LON", -0.1278),
			DefaultZoom: getEnvInt("MAP_DEFAULT_ZOOM", 11),
			FocusZoom:   getEnvInt("MAP_FOCUS_ZOOM", 15),
			PanDuration: getEnvDuration("MAP_PAN_DURATION", 800*time.Millisecond),
			SettleDelay: getEnvDuration("MAP_SETTLE_DELAY", 1200*time.Millisecond),
			Bounds: models.BoundingBox{
				MinLat: getEnvFloat("MAP_BOUNDS_MIN_LAT", 51.25),
				MaxLat: getEnvFloat("MAP_BOUNDS_MAX_LAT", 51.75),
				MinLon: getEnvFloat("MAP_BOUNDS_MIN_LON", -0.55),
				MaxLon: getEnvFloat("MAP_BOUNDS_MAX_LON", 0.30),
			},
		},
		DB: DatabaseConfig{
			Enabled: getEnvBool("SNAPSHOT_ENABLED", true),
			Path:    getEnv("DB_PATH", "./data/road-disruptions.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Feed.RefreshInterval < time.Minute {
		return fmt.Errorf("feed refresh interval must be at least 1 minute")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive")
	}

	// The popup must never open mid-pan.
	if c.Map.SettleDelay <= c.Map.PanDuration {
		return fmt.Errorf("map settle delay (%s) must exceed pan duration (%s)",
			c.Map.SettleDelay, c.Map.PanDuration)
	}

	b := c.Map.Bounds
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return fmt.Errorf("invalid map bounds: %+v", b)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
