package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOverridesDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader(`
[database]
driver = "mysql"
dsn = "crm:secret@tcp(127.0.0.1:3306)/carcrm"

[cache]
redis_url = "redis://localhost:6379/0"
ttl = "5m"

[stats]
timezone = "Europe/Vilnius"
`))
	require.NoError(t, err)

	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "crm:secret@tcp(127.0.0.1:3306)/carcrm", cfg.DSN())
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, ":8080", cfg.HTTP.Addr, "untouched sections keep defaults")
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Vilnius", loc.String())
}

func TestReadRejectsMalformedTOML(t *testing.T) {
	_, err := Read(strings.NewReader("[database\ndriver = "))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "carcrm.db", cfg.DSN())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "unknown database.driver"},
		{"mysql without dsn", func(c *Config) { c.Database.Driver = DriverMySQL }, "database.dsn is required"},
		{"sqlite without path", func(c *Config) { c.Database.Path = " " }, "database.path is required"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"cache without ttl", func(c *Config) { c.Cache.RedisURL = "redis://x"; c.Cache.TTL = 0 }, "cache.ttl"},
		{"bad timezone", func(c *Config) { c.Stats.Timezone = "Mars/Olympus" }, "stats.timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "carcrm.toml")
	cfg := Default()
	cfg.HTTP.Addr = "127.0.0.1:9090"

	require.NoError(t, Init(path, cfg))
	assert.Error(t, Init(path, cfg), "existing files are not overwritten")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", loaded.HTTP.Addr)
	assert.Equal(t, cfg.Database, loaded.Database)
}

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
