package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Tracking TrackingConfig
	Scraper  ScraperConfig
	LogLevel string
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TrackingConfig struct {
	// ScanInterval is how stale a product's last check must be before the
	// scheduler re-requests it. Independent of SchedulerRate.
	ScanInterval  time.Duration
	SchedulerRate time.Duration
	BatchSize     int
}

type ScraperConfig struct {
	Headless        bool
	NavTimeout      time.Duration
	SelectorTimeout time.Duration
	// MaxAttempts bounds broker redelivery for transient failures before a
	// message is dead-lettered.
	MaxAttempts  int
	RateLimitMin time.Duration
	RateLimitMax time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "alertify"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Tracking: TrackingConfig{
			ScanInterval:  getEnvDuration("TRACKING_SCAN_INTERVAL", 30*time.Minute),
			SchedulerRate: getEnvDuration("TRACKING_SCHEDULER_RATE", time.Minute),
			BatchSize:     getEnvInt("TRACKING_SCAN_BATCH_SIZE", 50),
		},
		Scraper: ScraperConfig{
			Headless:        getEnvBool("SCRAPER_HEADLESS", true),
			NavTimeout:      getEnvDuration("SCRAPER_NAV_TIMEOUT", 45*time.Second),
			SelectorTimeout: getEnvDuration("SCRAPER_SELECTOR_TIMEOUT", 15*time.Second),
			MaxAttempts:     getEnvInt("SCRAPER_MAX_ATTEMPTS", 5),
			RateLimitMin:    getEnvDuration("SCRAPER_RATE_LIMIT_MIN", 2*time.Second),
			RateLimitMax:    getEnvDuration("SCRAPER_RATE_LIMIT_MAX", 5*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Tracking.BatchSize < 1 {
		return fmt.Errorf("scan batch size must be at least 1")
	}

	if c.Tracking.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive")
	}

	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("at least 1 scrape attempt is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
