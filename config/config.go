// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config mirrors config.yaml.
type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		RateLimit      struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"http"`
	Model struct {
		Path      string `yaml:"path"`
		CacheSize int    `yaml:"cache_size"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"model"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	UI struct {
		Title  string `yaml:"title"`
		Locale string `yaml:"locale"`
	} `yaml:"ui"`
}

// Default returns the configuration used when config.yaml omits a value.
func Default() *Config {
	var c Config
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Http.MaxBodyBytes = 1 << 16
	c.Http.RateLimit.RPS = 10
	c.Http.RateLimit.Burst = 20
	c.Model.Path = "models/lstm_delivery_model.json"
	c.Model.CacheSize = 1024
	c.Model.Watch = true
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.UI.Title = "Food Delivery Time Prediction"
	c.UI.Locale = "en"
	return &c
}

// Load reads path over the defaults, then applies .env and environment
// overrides. A missing config file or .env is not an error.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(config); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DELIVERY_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: DELIVERY_HTTP_PORT: %v", ErrInvalidConfig, err)
		}
		c.Http.Port = port
	}
	if v := os.Getenv("DELIVERY_MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("DELIVERY_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DELIVERY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DELIVERY_LOCALE"); v != "" {
		c.UI.Locale = v
	}
	return nil
}

// Validate rejects out-of-range ports, a missing model path and unknown
// log levels.
func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("%w: http.port %d out of range", ErrInvalidConfig, c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be positive", ErrInvalidConfig)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("%w: model.path is required", ErrInvalidConfig)
	}
	if c.Model.CacheSize < 0 {
		return fmt.Errorf("%w: model.cache_size must not be negative", ErrInvalidConfig)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}
