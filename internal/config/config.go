package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort string `yaml:"server_port"`

	// OpenTelemetry settings
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Environment  string `yaml:"environment"`

	// StorageDriver is either "memory" or "mysql".
	StorageDriver string         `yaml:"storage_driver"`
	Database      DatabaseConfig `yaml:"database"`
	Redis         RedisConfig    `yaml:"redis"`

	// TimeZone is the zone limit times without an offset are read in.
	TimeZone string `yaml:"time_zone"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Charset  string `yaml:"charset"`
}

// RedisConfig enables the category cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Load reads the YAML file at path, if it exists, then applies environment
// overrides and defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort, "8080")
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint, "localhost:4317")
	cfg.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.ServiceName, "go-taskboard")
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment, "development")
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver, StorageMemory)
	cfg.TimeZone = getEnv("TIME_ZONE", cfg.TimeZone, "Local")

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host, "localhost")
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User, "root")
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password, "")
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName, "taskboard")
	cfg.Database.Charset = getEnv("DB_CHARSET", cfg.Database.Charset, "utf8mb4")
	port, err := getEnvInt("DB_PORT", cfg.Database.Port, 3306)
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = port

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr, "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password, "")
	redisDB, err := getEnvInt("REDIS_DB", cfg.Redis.DB, 0)
	if err != nil {
		return nil, err
	}
	cfg.Redis.DB = redisDB
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 10 * time.Minute
	}

	switch cfg.StorageDriver {
	case StorageMemory, StorageMySQL:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	return cfg, nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// getEnv returns the environment value for key, else current, else defaultValue.
func getEnv(key, current, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if current != "" {
		return current
	}
	return defaultValue
}

func getEnvInt(key string, current, defaultValue int) (int, error) {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return n, nil
	}
	if current != 0 {
		return current, nil
	}
	return defaultValue, nil
}
