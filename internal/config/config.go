package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Pricing   PricingConfig
	Scheduler SchedulerConfig
	Matching  MatchingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// PricingConfig holds the city-center geofence bounds. The fence is an
// axis-aligned box; defaults cover central Tashkent.
type PricingConfig struct {
	ZoneMinLat float64
	ZoneMaxLat float64
	ZoneMinLng float64
	ZoneMaxLng float64
}

// SchedulerConfig holds the materializer loop settings.
type SchedulerConfig struct {
	TickInterval time.Duration
	Window       time.Duration
}

// MatchingConfig holds dispatch settings.
type MatchingConfig struct {
	// PickupETAMinutes is the placeholder pickup estimate stamped onto
	// assignments until real driver positions feed the estimate.
	PickupETAMinutes int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			// No write timeout: the event stream endpoint holds its
			// response open indefinitely.
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "dispatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "dispatch-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Pricing: PricingConfig{
			ZoneMinLat: getFloatEnv("PRICING_ZONE_MIN_LAT", 41.28),
			ZoneMaxLat: getFloatEnv("PRICING_ZONE_MAX_LAT", 41.34),
			ZoneMinLng: getFloatEnv("PRICING_ZONE_MIN_LNG", 69.22),
			ZoneMaxLng: getFloatEnv("PRICING_ZONE_MAX_LNG", 69.30),
		},
		Scheduler: SchedulerConfig{
			TickInterval: getDurationEnv("SCHEDULER_TICK_INTERVAL", 30*time.Second),
			Window:       getDurationEnv("SCHEDULER_WINDOW", time.Minute),
		},
		Matching: MatchingConfig{
			PickupETAMinutes: getIntEnv("MATCHING_PICKUP_ETA_MINUTES", 5),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
