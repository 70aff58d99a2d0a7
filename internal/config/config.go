// Package config provides configuration management for sitesearch.
// It defines the configuration structures, their defaults and validation.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"runtime"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Site is one crawl root
type Site struct {
	URL  string `mapstructure:"url" yaml:"url"`   // Root url, no trailing slash
	Name string `mapstructure:"name" yaml:"name"` // Display name
}

// SearchConfig tunes the search engine and its result cache
type SearchConfig struct {
	TooFrequentRatio float64       `mapstructure:"too_frequent_ratio" yaml:"too_frequent_ratio"` // Lemmas on at least this share of pages are ignored
	DefaultLimit     int           `mapstructure:"default_limit" yaml:"default_limit"`           // Page size when the caller sends none
	MaxLimit         int           `mapstructure:"max_limit" yaml:"max_limit"`                   // Upper bound for a single page
	CacheTTL         time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`                   // 0 disables caching
	CacheSize        int           `mapstructure:"cache_size" yaml:"cache_size"`                 // In-process cache entries
}

// DatabaseConfig selects the entity store backend
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path" yaml:"path"`     // SQLite file
	DSN    string `mapstructure:"dsn" yaml:"dsn"`       // Postgres connection string
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// RedisConfig configures the shared search cache. Empty Addr keeps the cache in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	PoolSize int    `mapstructure:"pool_size" yaml:"pool_size"`
}

// KafkaConfig configures crawl event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

// LoggingConfig mirrors logging.Config in a serializable form
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"` // json or text
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int64  `mapstructure:"max_size" yaml:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Console    bool   `mapstructure:"console" yaml:"console"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Config holds the whole application configuration
type Config struct {
	Sites []Site `mapstructure:"sites" yaml:"sites"`

	// Fetching
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	Referrer       string        `mapstructure:"referrer" yaml:"referrer"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	RequestDelay   time.Duration `mapstructure:"request_delay" yaml:"request_delay"` // Applied once before link expansion
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`       // Requests per second per host, 0 = unlimited
	RespectRobots  bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	MaxBodySize    int64         `mapstructure:"max_body_size" yaml:"max_body_size"`

	// Crawling
	CrawlWorkers    int      `mapstructure:"crawl_workers" yaml:"crawl_workers"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka" yaml:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultCrawlWorkers is half the available CPUs, never below one
func DefaultCrawlWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		UserAgent:      "Mozilla/5.0 (compatible; SiteSearchBot/1.0)",
		Referrer:       "https://www.google.com",
		RequestTimeout: 20 * time.Second,
		RequestDelay:   200 * time.Millisecond,
		MaxBodySize:    10 << 20,
		CrawlWorkers:   DefaultCrawlWorkers(),
		Search: SearchConfig{
			TooFrequentRatio: 0.8,
			DefaultLimit:     20,
			MaxLimit:         100,
			CacheTTL:         30 * time.Second,
			CacheSize:        512,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "./sitesearch.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Topic: "sitesearch.crawl-events",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSize:    100,
			MaxBackups: 5,
			Console:    true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration and normalizes site urls in place
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoSites
	}

	seen := make(map[string]bool, len(c.Sites))
	for i := range c.Sites {
		site := &c.Sites[i]
		site.URL = strings.TrimRight(strings.TrimSpace(site.URL), "/")
		u, err := url.Parse(site.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSiteURL, site.URL)
		}
		if seen[site.URL] {
			return fmt.Errorf("%w: %q", ErrDuplicateSite, site.URL)
		}
		seen[site.URL] = true
		if site.Name == "" {
			site.Name = u.Host
		}
	}

	if c.CrawlWorkers <= 0 {
		return ErrInvalidWorkers
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestDelay < 0 {
		return ErrInvalidDelay
	}
	if c.Search.TooFrequentRatio <= 0 || c.Search.TooFrequentRatio > 1 {
		return ErrInvalidRatio
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		c.Search.MaxLimit = c.Search.DefaultLimit
	}

	for _, p := range c.ExcludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
		}
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return ErrEmptyDatabasePath
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return ErrEmptyDatabaseDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}

	return nil
}

// SiteFor returns the configured site whose root url prefixes rawURL.
// The remainder after the root must be empty or start with "/".
func (c *Config) SiteFor(rawURL string) (Site, bool) {
	for _, s := range c.Sites {
		root := strings.TrimRight(s.URL, "/")
		if !strings.HasPrefix(rawURL, root) {
			continue
		}
		rest := rawURL[len(root):]
		if rest == "" || strings.HasPrefix(rest, "/") {
			return s, true
		}
	}
	return Site{}, false
}
