package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config is the server configuration read from a TOML file.
type Config struct {
	HTTP     HTTPConfig     `toml:"http"`
	RPC      RPCConfig      `toml:"rpc"`
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`
	Stats    StatsConfig    `toml:"stats"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

type RPCConfig struct {
	Socket string `toml:"socket"`
}

// DatabaseConfig selects the store. Path is used by sqlite, DSN by mysql.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "mysql"
	Path   string `toml:"path,omitempty"`
	DSN    string `toml:"dsn,omitempty"`
}

// CacheConfig enables the catalog cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string        `toml:"redis_url,omitempty"`
	TTL      time.Duration `toml:"ttl"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

type StatsConfig struct {
	Timezone string `toml:"timezone"`
}

// Default returns a configuration that runs against a local SQLite file.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		RPC:      RPCConfig{Socket: "/tmp/carcrm.sock"},
		Database: DatabaseConfig{Driver: DriverSQLite, Path: "carcrm.db"},
		Cache:    CacheConfig{TTL: 10 * time.Minute},
		Log:      LogConfig{Level: "info", Format: "console"},
		Stats:    StatsConfig{Timezone: "UTC"},
	}
}

// Read decodes a Config from r on top of the defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes cfg to w.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load reads the file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to a new file at path. It refuses to overwrite.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for driver %q", DriverSQLite)
		}
	case DriverMySQL:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for driver %q", DriverMySQL)
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}

	if c.Cache.RedisURL != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == DriverMySQL {
		return c.Database.DSN
	}
	return c.Database.Path
}

// Location resolves stats.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Stats.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid stats.timezone %q: %w", c.Stats.Timezone, err)
	}
	return loc, nil
}
