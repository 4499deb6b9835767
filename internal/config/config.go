package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the gally search API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	OpenSearch OpenSearchConfig `yaml:"opensearch"`
	Engine     EngineConfig     `yaml:"engine"`
	Search     SearchConfig     `yaml:"search"`
	Facet      FacetConfig      `yaml:"facet"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// PostgresConfig holds the catalog database settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConns       int32  `yaml:"max_conns"`
	QueryTimeoutMS int    `yaml:"query_timeout_ms"`
}

// RedisConfig holds the mapping cache settings. No addrs disables the cache.
type RedisConfig struct {
	Addrs              []string `yaml:"addrs"`
	Password           string   `yaml:"password"`
	MappingCacheTTLSec int      `yaml:"mapping_cache_ttl_sec"`
	ReadinessTimeout   int      `yaml:"readiness_timeout_sec"`
}

// OpenSearchConfig holds search engine connection settings.
type OpenSearchConfig struct {
	Addresses          []string `yaml:"addresses"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	MaxRetries         int      `yaml:"max_retries"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	ReadinessTimeout   int      `yaml:"readiness_timeout_sec"`
}

// Engine kinds.
const (
	EngineOpenSearch = "opensearch"
	EngineMemory     = "memory"
)

// EngineConfig selects the search backend.
// The memory engine serves every store from the fixtures file.
type EngineConfig struct {
	Kind     string `yaml:"kind"` // opensearch (default), memory
	Fixtures string `yaml:"fixtures"`
}

// SearchConfig holds request assembly settings.
type SearchConfig struct {
	IndexPrefix     string `yaml:"index_prefix"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	AllowMultiSort  bool   `yaml:"allow_multi_sort"`
}

// FacetConfig holds facet settings.
type FacetConfig struct {
	ViewMoreSize int `yaml:"view_more_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Postgres.QueryTimeoutMS <= 0 {
		c.Postgres.QueryTimeoutMS = 3000
	}
	if c.Redis.MappingCacheTTLSec <= 0 {
		c.Redis.MappingCacheTTLSec = 300
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.OpenSearch.MaxRetries <= 0 {
		c.OpenSearch.MaxRetries = 3
	}
	if c.OpenSearch.ReadinessTimeout <= 0 {
		c.OpenSearch.ReadinessTimeout = 30
	}
	if c.Engine.Kind == "" {
		c.Engine.Kind = EngineOpenSearch
	}
	if c.Search.IndexPrefix == "" {
		c.Search.IndexPrefix = "gally"
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 30
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Facet.ViewMoreSize <= 0 {
		c.Facet.ViewMoreSize = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Engine.Kind {
	case EngineOpenSearch:
		if len(c.OpenSearch.Addresses) == 0 {
			return fmt.Errorf("opensearch.addresses is required")
		}
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required")
		}
	case EngineMemory:
		if c.Engine.Fixtures == "" {
			return fmt.Errorf("engine.fixtures is required for the memory engine")
		}
	default:
		return fmt.Errorf("engine.kind must be %q or %q, got %q", EngineOpenSearch, EngineMemory, c.Engine.Kind)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds search.max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	return nil
}

// QueryTimeout returns the per-query Postgres timeout.
func (c PostgresConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// MappingCacheTTL returns the lifetime of cached mappings.
func (c RedisConfig) MappingCacheTTL() time.Duration {
	return time.Duration(c.MappingCacheTTLSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
