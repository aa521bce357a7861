package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. CONTEST_STORAGE_DRIVER.
const EnvPrefix = "CONTEST"

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		StaticDir       string   `yaml:"static_dir" split_words:"true"`
		CORSOrigins     []string `yaml:"cors_origins" split_words:"true"`
		ShutdownTimeout string   `yaml:"shutdown_timeout" split_words:"true"`
	} `yaml:"server"`
	Storage struct {
		// Driver is one of file, redis, postgres or memory.
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Round struct {
		DefaultLabel string `yaml:"default_label" split_words:"true"`
	} `yaml:"round"`
	Marks struct {
		Min *float64 `yaml:"min"`
		Max *float64 `yaml:"max"`
	} `yaml:"marks"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Storage.Driver = "file"
	cfg.Storage.Dir = "data"
	cfg.Redis.Prefix = "contest"
	cfg.Round.DefaultLabel = "round1"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies
// CONTEST_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("storage driver redis requires redis.addr")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return errors.New("storage driver postgres requires postgres.url")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Marks.Min != nil && c.Marks.Max != nil && *c.Marks.Min > *c.Marks.Max {
		return fmt.Errorf("marks.min %v is greater than marks.max %v", *c.Marks.Min, *c.Marks.Max)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
