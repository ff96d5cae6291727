package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	APIURL  string        `yaml:"api_url" env:"MOONDANCE_API_URL" env-default:"http://localhost:8080/api/v1"`
	Env     string        `yaml:"env"     env:"ENV"               env-default:"prod"`
	Timeout time.Duration `yaml:"timeout" env:"MOONDANCE_TIMEOUT" env-default:"10s"`

	// NoRateLimit turns the client-side limiter off. The limits themselves
	// come from MOONDANCE_RATELIMIT_{API,AUTH}_* (see pkg/httpx).
	NoRateLimit bool `yaml:"no_rate_limit" env:"MOONDANCE_NO_RATELIMIT"`

	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"warn"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// StoreConfig selects where the session is persisted.
type StoreConfig struct {
	Driver  string `yaml:"driver"  env:"MOONDANCE_STORE"         env-default:"file"`
	Path    string `yaml:"path"    env:"MOONDANCE_STORE_PATH"`
	Profile string `yaml:"profile" env:"MOONDANCE_PROFILE"       env-default:"default"`

	// Passphrase seals the file driver's document. Never read from YAML.
	Passphrase string `yaml:"-" env:"MOONDANCE_PASSPHRASE"`

	RedisAddr     string        `yaml:"redis_addr" env:"MOONDANCE_REDIS_ADDR"     env-default:"localhost:6379"`
	RedisPassword string        `yaml:"-"          env:"MOONDANCE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"   env:"MOONDANCE_REDIS_DB"       env-default:"0"`
	RedisTTL      time.Duration `yaml:"redis_ttl"  env:"MOONDANCE_REDIS_TTL"      env-default:"720h"`
}

// SessionPath returns the configured path or the driver's default location
// under dir.
func (s StoreConfig) SessionPath(dir string) string {
	if s.Path != "" {
		return s.Path
	}
	switch s.Driver {
	case StoreSQLite:
		return filepath.Join(dir, "session.db")
	default:
		return filepath.Join(dir, "session.json")
	}
}

// DefaultDir is $XDG_CONFIG_HOME/moondance, or the platform equivalent.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".moondance"
	}
	return filepath.Join(dir, "moondance")
}

// DefaultConfigPath is the config file read when none is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// LoadConfig reads configuration with this precedence:
//  1. explicit path (--config), which must exist;
//  2. MOONDANCE_CONFIG;
//  3. DefaultConfigPath, if present;
//  4. environment only.
//
// Environment variables always override file values.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("MOONDANCE_CONFIG")
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigPath()); err == nil {
			path = DefaultConfigPath()
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return errors.New("api_url must not be empty")
	}
	switch c.Store.Driver {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
