package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

type Config struct {
	AppEnv         string
	Port           string
	GinMode        string
	Database       DatabaseConfig
	JWTSecret      string
	JWTTTL         time.Duration
	LogLevel       string
	LogFormat      string
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

// TestMode reports whether request-driven fault injection may be wired.
func (c *Config) TestMode() bool {
	return c.AppEnv == EnvTest
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", EnvDevelopment),
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "debug"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "food_delivery.db?_fk=1"),
		},
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.Database.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.Database.MaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.Database.ConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	rps := getEnv("RATE_LIMIT_RPS", "10")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: invalid number %q", rps)
	}
	cfg.Database.LogLevel = cfg.LogLevel

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.Database.Driver)
	}
	if c.JWTSecret == "" {
		if c.AppEnv == EnvProduction {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
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
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
