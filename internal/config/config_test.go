package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{Path: "/data"},
		Index:  IndexConfig{Path: "/data/index/search", Version: "1.30"},
		Search: SearchConfig{LikeField: "Like"},
		Price:  PriceConfig{CacheBackend: "file"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"unknown log level", func(c *Config) { c.Logger.Level = "trace" }},
		{"empty data path", func(c *Config) { c.Data.Path = "" }},
		{"empty index version", func(c *Config) { c.Index.Version = "" }},
		{"index version with separator", func(c *Config) { c.Index.Version = "1/30" }},
		{"empty like field", func(c *Config) { c.Search.LikeField = "" }},
		{"negative max results", func(c *Config) { c.Search.MaxResults = -1 }},
		{"unknown price backend", func(c *Config) { c.Price.CacheBackend = "redis" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("ENV", "")
	t.Setenv("INDEX_PATH", "")
	t.Setenv("PRICE_CACHE_BACKEND", "")
	t.Setenv("PRICE_CACHE_PATH", "")

	cfg, err := Load([]string{"-env-file", filepath.Join(dataDir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, filepath.Join(dataDir, "index", "search"), cfg.Index.Path)
	assert.Equal(t, filepath.Join(dataDir, "custom_sets"), cfg.Data.CustomSetsDir)
	assert.Equal(t, filepath.Join(dataDir, "AllPrices.cache.json"), cfg.Price.CachePath)
	assert.Equal(t, filepath.Join(dataDir, "AllPrintings.json"), cfg.SetsPath())
	assert.Equal(t, "1.31", cfg.Index.Version)
	assert.Equal(t, "Like", cfg.Search.LikeField)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.True(t, cfg.Data.Watch)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("SET_FILTER", "LEA")
	t.Setenv("PRICE_CACHE_BACKEND", "file")
	t.Setenv("PRICE_CACHE_PATH", "")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(dataDir, "missing.env"),
		"-sets", "M10, M11,",
		"-price-cache", "BADGER",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"M10", "M11"}, cfg.Data.SetFilter)
	assert.Equal(t, "badger", cfg.Price.CacheBackend)
	assert.Equal(t, filepath.Join(dataDir, "prices.badger"), cfg.Price.CachePath)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dataDir := t.TempDir()
	envPath := filepath.Join(dataDir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("LOG_LEVEL=debug\nSEARCH_LIKE_FIELD=Similar\n"), 0o600))

	t.Setenv("DATA_PATH", dataDir)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SEARCH_LIKE_FIELD", "")
	require.NoError(t, os.Unsetenv("SEARCH_LIKE_FIELD"))

	cfg, err := Load([]string{"-env-file", envPath})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "Similar", cfg.Search.LikeField)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	_, err := Load([]string{"-read-timeout", "soon"})
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/cards", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cards"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("relative/dir", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetIntConfigValue_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("MTGDB_TEST_INT", "many")
	assert.Equal(t, 7, getIntConfigValue("", "MTGDB_TEST_INT", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "MTGDB_TEST_INT", 7))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList("  "))
	assert.Equal(t, []string{"a", "b"}, splitList(" a,,b "))
}
