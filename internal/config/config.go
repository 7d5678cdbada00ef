// Package config loads server configuration from flags, environment variables, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Index  IndexConfig
	Search SearchConfig
	Price  PriceConfig
	Server ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig locates the card dataset files.
type DataConfig struct {
	Path           string   // Directory holding the dataset (default: ~/mtgdb/data)
	SetsFile       string   // Bulk dataset file name (default: AllPrintings.json)
	PatchFile      string   // Correction document (default: patch.v2.json)
	CustomSetsDir  string   // Per-set override documents (default: {Path}/custom_sets)
	CustomSetCodes []string // Sets read from CustomSetsDir instead of the bulk file
	SetFilter      []string // When non-empty, only these set codes are loaded
	Watch          bool     // Watch the data directory for source changes (default: true)
}

// IndexConfig holds the persisted search index settings.
type IndexConfig struct {
	Path    string // Parent directory of versioned index directories (default: {Data.Path}/index/search)
	Version string // Builder version, part of the index tag (default: 1.31)
}

// SearchConfig holds query evaluation settings.
type SearchConfig struct {
	LikeField  string // Reserved similarity field name (default: Like)
	MaxResults int    // 0 returns every match
	CacheSize  int    // Result cache entries (default: 256)
}

// PriceConfig holds price overlay settings.
type PriceConfig struct {
	FeedFile     string // Raw price feed file name (default: AllPrices.json)
	CacheBackend string // file or badger (default: file)
	CachePath    string // Cache file or badger directory (default: {Data.Path}/AllPrices.cache.json)
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	SearchRatePerMin   int
	SearchRateBurst    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a Config with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("mtgdb", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory holding the card dataset")
	setFilter := fs.String("sets", "", "Comma separated set codes to load (default: all)")
	customSets := fs.String("custom-sets", "", "Comma separated set codes read from custom set files")
	watch := fs.String("watch", "", "Watch the data directory for changes (default: true)")
	indexPath := fs.String("index-path", "", "Parent directory for search indexes")
	indexVersion := fs.String("index-version", "", "Search index builder version")
	likeField := fs.String("like-field", "", "Name of the similarity query field (default: Like)")
	maxResults := fs.String("max-results", "", "Maximum search hits returned (default: all)")
	priceBackend := fs.String("price-cache", "", "Price cache backend: file or badger")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Missing .env is fine; godotenv never overrides variables already set.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Path:           getConfigValue(*dataPath, "DATA_PATH", ""),
			SetsFile:       getConfigValue("", "SETS_FILE", "AllPrintings.json"),
			PatchFile:      getConfigValue("", "PATCH_FILE", "patch.v2.json"),
			CustomSetsDir:  getConfigValue("", "CUSTOM_SETS_DIR", ""),
			CustomSetCodes: splitList(getConfigValue(*customSets, "CUSTOM_SET_CODES", "")),
			SetFilter:      splitList(getConfigValue(*setFilter, "SET_FILTER", "")),
			Watch:          getBoolConfigValue(*watch, "WATCH_DATA", true),
		},
		Index: IndexConfig{
			Path:    getConfigValue(*indexPath, "INDEX_PATH", ""),
			Version: getConfigValue(*indexVersion, "INDEX_VERSION", "1.31"),
		},
		Search: SearchConfig{
			LikeField:  getConfigValue(*likeField, "SEARCH_LIKE_FIELD", "Like"),
			MaxResults: getIntConfigValue(*maxResults, "SEARCH_MAX_RESULTS", 0),
			CacheSize:  getIntConfigValue("", "SEARCH_CACHE_SIZE", 256),
		},
		Price: PriceConfig{
			FeedFile:     getConfigValue("", "PRICE_FEED_FILE", "AllPrices.json"),
			CacheBackend: strings.ToLower(getConfigValue(*priceBackend, "PRICE_CACHE_BACKEND", "file")),
			CachePath:    getConfigValue("", "PRICE_CACHE_PATH", ""),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			SearchRatePerMin:   getIntConfigValue("", "SEARCH_RATE_PER_MINUTE", 120),
			SearchRateBurst:    getIntConfigValue("", "SEARCH_RATE_BURST", 20),
			CORSAllowedOrigins: splitList(getConfigValue("", "CORS_ALLOWED_ORIGINS", "*")),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Index.Version == "" {
		return errors.New("index version cannot be empty")
	}
	if strings.ContainsAny(c.Index.Version, `/\`) {
		return fmt.Errorf("index version %q must not contain path separators", c.Index.Version)
	}
	if c.Search.LikeField == "" {
		return errors.New("like field name cannot be empty")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max results must not be negative: %d", c.Search.MaxResults)
	}

	switch c.Price.CacheBackend {
	case "file", "badger":
	default:
		return fmt.Errorf("invalid price cache backend: %s (must be file or badger)", c.Price.CacheBackend)
	}

	return nil
}

// SetsPath returns the bulk dataset location.
func (c *Config) SetsPath() string {
	return filepath.Join(c.Data.Path, c.Data.SetsFile)
}

// PatchPath returns the correction document location.
func (c *Config) PatchPath() string {
	return filepath.Join(c.Data.Path, c.Data.PatchFile)
}

// PriceFeedPath returns the raw price feed location.
func (c *Config) PriceFeedPath() string {
	return filepath.Join(c.Data.Path, c.Price.FeedFile)
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.Data.Path, err = expandPath(c.Data.Path, filepath.Join(homeDir, "mtgdb", "data")); err != nil {
		return err
	}
	if c.Data.CustomSetsDir, err = expandPath(c.Data.CustomSetsDir, filepath.Join(c.Data.Path, "custom_sets")); err != nil {
		return err
	}
	if c.Index.Path, err = expandPath(c.Index.Path, filepath.Join(c.Data.Path, "index", "search")); err != nil {
		return err
	}

	defaultCache := filepath.Join(c.Data.Path, "AllPrices.cache.json")
	if c.Price.CacheBackend == "badger" {
		defaultCache = filepath.Join(c.Data.Path, "prices.badger")
	}
	if c.Price.CachePath, err = expandPath(c.Price.CachePath, defaultCache); err != nil {
		return err
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is used as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return d, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
