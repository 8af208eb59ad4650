// Package config loads service configuration from the environment with an
// optional YAML overlay for list-shaped settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "SCREENER_CONFIG"

	// DefaultAdminToken is the development placeholder; Validate flags it in
	// production.
	DefaultAdminToken = "dev-admin-token-change-in-production"

	SearchModeSingle = "single"
	SearchModeMulti  = "multi"
)

// Config is the full service configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Registry  Registry  `yaml:"registry"`
	WebSearch WebSearch `yaml:"web_search"`
	Screening Screening `yaml:"screening"`
	Redis     Redis     `yaml:"redis"`
	Auth      Auth      `yaml:"auth"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string `yaml:"addr"`
	Environment string `yaml:"environment"`
}

// Log selects the log level, encoding and optional rotated file sink.
type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Registry configures the sanctions registry client.
type Registry struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Collections []string      `yaml:"collections"`
}

// WebSearch configures the web search client.
type WebSearch struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Limit   int           `yaml:"limit"`
	Mode    string        `yaml:"mode"`
}

// TrustedSource is an extra allowlist entry supplied by the overlay file.
type TrustedSource struct {
	Domain string `yaml:"domain"`
	Name   string `yaml:"name"`
}

// Screening holds pipeline tuning.
type Screening struct {
	ParallelTimeout    time.Duration   `yaml:"parallel_timeout"`
	BatchConcurrency   int             `yaml:"batch_concurrency"`
	MaxEntities        int             `yaml:"max_entities"`
	CacheTTL           time.Duration   `yaml:"cache_ttl"`
	ExtraTrustedSource []TrustedSource `yaml:"trusted_sources"`
}

// Redis describes the cache connection. An empty URL and host means no Redis.
type Redis struct {
	URL          string        `yaml:"url"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	DB           int           `yaml:"db"`
	Password     string        `yaml:"password"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r Redis) Enabled() bool {
	return r.URL != "" || r.Host != ""
}

// ConnectionURL returns URL, or builds one from the discrete fields.
func (r Redis) ConnectionURL() string {
	if r.URL != "" {
		return r.URL
	}
	if r.Host == "" {
		return ""
	}
	port := r.Port
	if port == 0 {
		port = 6379
	}
	auth := ""
	if r.Password != "" {
		auth = ":" + r.Password + "@"
	}
	return fmt.Sprintf("redis://%s%s/%d", auth, net.JoinHostPort(r.Host, strconv.Itoa(port)), r.DB)
}

// Auth holds the admin token and the optional API-key gate.
type Auth struct {
	AdminToken    string   `yaml:"admin_token"`
	RequireAPIKey bool     `yaml:"require_api_key"`
	APIKeys       []string `yaml:"api_keys"`
	APIKeyHeader  string   `yaml:"api_key_header"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", Environment: "production"},
		Log:    Log{Level: "info", Format: "text", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Registry: Registry{
			BaseURL:     "https://api.opensanctions.org",
			Timeout:     10 * time.Second,
			Collections: []string{"default", "sanctions"},
		},
		WebSearch: WebSearch{
			BaseURL: "https://google.serper.dev/search",
			Timeout: 8 * time.Second,
			Limit:   5,
			Mode:    SearchModeSingle,
		},
		Screening: Screening{
			ParallelTimeout:  15 * time.Second,
			BatchConcurrency: 4,
			MaxEntities:      50,
			CacheTTL:         time.Hour,
		},
		Redis: Redis{
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Auth: Auth{
			AdminToken:   DefaultAdminToken,
			APIKeyHeader: "X-API-Key",
		},
	}
}

// Load applies the YAML overlay named by SCREENER_CONFIG (if any) on top of
// the defaults, then environment overrides. Overlay read or parse failures
// are logged and ignored.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			slog.Warn("config overlay ignored", "path", path, "error", err)
		} else {
			cfg = merge(cfg, fileCfg)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	var out Config
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			if d, ok := parseDuration(v); ok {
				*dst = d
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	str("SCREENER_ADDR", &c.Server.Addr)
	str("ENVIRONMENT", &c.Server.Environment)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	str("OPENSANCTIONS_API_KEY", &c.Registry.APIKey)
	str("OPENSANCTIONS_API_URL", &c.Registry.BaseURL)
	dur("OPENSANCTIONS_TIMEOUT", &c.Registry.Timeout)

	str("SERPER_API_KEY", &c.WebSearch.APIKey)
	str("SERPER_API_URL", &c.WebSearch.BaseURL)
	dur("WEB_SEARCH_TIMEOUT", &c.WebSearch.Timeout)
	num("SEARCH_RESULTS_LIMIT", &c.WebSearch.Limit)
	str("WEB_SEARCH_MODE", &c.WebSearch.Mode)

	dur("PARALLEL_PROCESSING_TIMEOUT", &c.Screening.ParallelTimeout)
	num("BATCH_CONCURRENCY", &c.Screening.BatchConcurrency)
	num("MAX_ENTITIES_PER_REQUEST", &c.Screening.MaxEntities)
	if v, ok := lookup("CACHE_EXPIRY_SECONDS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Screening.CacheTTL = time.Duration(n) * time.Second
		}
	}

	str("REDIS_URL", &c.Redis.URL)
	str("REDIS_HOST", &c.Redis.Host)
	num("REDIS_PORT", &c.Redis.Port)
	num("REDIS_DB", &c.Redis.DB)
	str("REDIS_PASSWORD", &c.Redis.Password)

	str("ADMIN_TOKEN", &c.Auth.AdminToken)
	flag("REQUIRE_API_KEY", &c.Auth.RequireAPIKey)
	str("API_KEY_HEADER", &c.Auth.APIKeyHeader)
	if v, ok := lookup("API_KEYS"); ok {
		c.Auth.APIKeys = splitList(v)
	}
}

// parseDuration accepts Go durations ("8s") or bare seconds ("8").
func parseDuration(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, true
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func merge(base, over Config) Config {
	if over.Server.Addr != "" {
		base.Server.Addr = over.Server.Addr
	}
	if over.Server.Environment != "" {
		base.Server.Environment = over.Server.Environment
	}

	if over.Log.Level != "" {
		base.Log.Level = over.Log.Level
	}
	if over.Log.Format != "" {
		base.Log.Format = over.Log.Format
	}
	if over.Log.File != "" {
		base.Log.File = over.Log.File
	}
	if over.Log.MaxSizeMB > 0 {
		base.Log.MaxSizeMB = over.Log.MaxSizeMB
	}
	if over.Log.MaxBackups > 0 {
		base.Log.MaxBackups = over.Log.MaxBackups
	}
	if over.Log.MaxAgeDays > 0 {
		base.Log.MaxAgeDays = over.Log.MaxAgeDays
	}

	if over.Registry.APIKey != "" {
		base.Registry.APIKey = over.Registry.APIKey
	}
	if over.Registry.BaseURL != "" {
		base.Registry.BaseURL = over.Registry.BaseURL
	}
	if over.Registry.Timeout > 0 {
		base.Registry.Timeout = over.Registry.Timeout
	}
	if len(over.Registry.Collections) > 0 {
		base.Registry.Collections = over.Registry.Collections
	}

	if over.WebSearch.APIKey != "" {
		base.WebSearch.APIKey = over.WebSearch.APIKey
	}
	if over.WebSearch.BaseURL != "" {
		base.WebSearch.BaseURL = over.WebSearch.BaseURL
	}
	if over.WebSearch.Timeout > 0 {
		base.WebSearch.Timeout = over.WebSearch.Timeout
	}
	if over.WebSearch.Limit > 0 {
		base.WebSearch.Limit = over.WebSearch.Limit
	}
	if over.WebSearch.Mode != "" {
		base.WebSearch.Mode = over.WebSearch.Mode
	}

	if over.Screening.ParallelTimeout > 0 {
		base.Screening.ParallelTimeout = over.Screening.ParallelTimeout
	}
	if over.Screening.BatchConcurrency > 0 {
		base.Screening.BatchConcurrency = over.Screening.BatchConcurrency
	}
	if over.Screening.MaxEntities > 0 {
		base.Screening.MaxEntities = over.Screening.MaxEntities
	}
	if over.Screening.CacheTTL > 0 {
		base.Screening.CacheTTL = over.Screening.CacheTTL
	}
	base.Screening.ExtraTrustedSource = append(base.Screening.ExtraTrustedSource, over.Screening.ExtraTrustedSource...)

	if over.Redis.URL != "" {
		base.Redis.URL = over.Redis.URL
	}
	if over.Redis.Host != "" {
		base.Redis.Host = over.Redis.Host
		base.Redis.Port = over.Redis.Port
		base.Redis.DB = over.Redis.DB
		base.Redis.Password = over.Redis.Password
	}
	if over.Redis.PoolSize > 0 {
		base.Redis.PoolSize = over.Redis.PoolSize
	}

	if over.Auth.AdminToken != "" {
		base.Auth.AdminToken = over.Auth.AdminToken
	}
	if over.Auth.RequireAPIKey {
		base.Auth.RequireAPIKey = true
	}
	if len(over.Auth.APIKeys) > 0 {
		base.Auth.APIKeys = over.Auth.APIKeys
	}
	if over.Auth.APIKeyHeader != "" {
		base.Auth.APIKeyHeader = over.Auth.APIKeyHeader
	}
	return base
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Problem sentinels returned by Validate.
var (
	ErrRegistryKeyMissing  = errors.New("OPENSANCTIONS_API_KEY is not set: registry checks will fail")
	ErrSearchKeyMissing    = errors.New("SERPER_API_KEY is not set: web search checks will fail")
	ErrDefaultAdminToken   = errors.New("ADMIN_TOKEN uses the development default in production")
	ErrNoAPIKeys           = errors.New("REQUIRE_API_KEY is set but API_KEYS is empty")
	ErrInvalidSearchMode   = errors.New("WEB_SEARCH_MODE must be single or multi")
	ErrInvalidBatchSetting = errors.New("BATCH_CONCURRENCY and MAX_ENTITIES_PER_REQUEST must be positive")
)

// Validate lists configuration problems. None of them stop the service;
// the affected source runs degraded.
func (c Config) Validate() []error {
	var problems []error
	if c.Registry.APIKey == "" {
		problems = append(problems, ErrRegistryKeyMissing)
	}
	if c.WebSearch.APIKey == "" {
		problems = append(problems, ErrSearchKeyMissing)
	}
	if c.IsProduction() && c.Auth.AdminToken == DefaultAdminToken {
		problems = append(problems, ErrDefaultAdminToken)
	}
	if c.Auth.RequireAPIKey && len(c.Auth.APIKeys) == 0 {
		problems = append(problems, ErrNoAPIKeys)
	}
	if c.WebSearch.Mode != SearchModeSingle && c.WebSearch.Mode != SearchModeMulti {
		problems = append(problems, ErrInvalidSearchMode)
	}
	if c.Screening.BatchConcurrency <= 0 || c.Screening.MaxEntities <= 0 {
		problems = append(problems, ErrInvalidBatchSetting)
	}
	return problems
}
