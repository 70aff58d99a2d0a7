package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/masahif/sitesearch/internal/apperr"
	"github.com/masahif/sitesearch/internal/config"
	"github.com/masahif/sitesearch/internal/crawler"
	"github.com/masahif/sitesearch/internal/events"
	"github.com/masahif/sitesearch/internal/lemma"
	"github.com/masahif/sitesearch/internal/logging"
	"github.com/masahif/sitesearch/internal/metrics"
	"github.com/masahif/sitesearch/internal/search"
	"github.com/masahif/sitesearch/internal/stats"
	"github.com/masahif/sitesearch/internal/storage"
)

// app holds the wired components shared by all subcommands
type app struct {
	cfg       *config.Config
	store     *storage.Store
	metrics   *metrics.Metrics
	publisher events.Publisher
	redis     *redis.Client
	searcher  *search.CachedEngine
	crawler   *crawler.Crawler
	stats     *stats.Service
	logCloser io.Closer
}

// newApp sets up logging and opens every backend named in cfg. Redis and
// Kafka are optional: without an address the search cache stays in process
// and crawl events are discarded.
func newApp(cfg *config.Config) (*app, error) {
	logCloser, err := logging.SetDefault(logging.Config{
		Level:      logging.ParseLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		FilePath:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    cfg.Logging.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a := &app{cfg: cfg, logCloser: logCloser}

	if cfg.Database.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0750); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	a.store, err = storage.Open(cfg.Database)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(prometheus.NewRegistry())
	} else {
		a.metrics = metrics.NewNop()
	}

	var cache search.Cache
	if cfg.Redis.Addr != "" {
		a.redis, err = search.NewRedisClient(cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cache = search.NewRedisCache(a.redis, cfg.Search.CacheTTL)
	} else {
		cache = search.NewMemoryCache(cfg.Search.CacheSize, cfg.Search.CacheTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		a.publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		a.publisher = events.Nop{}
	}

	lemmatizer := lemma.NewRussian()
	a.searcher = search.NewCachedEngine(search.NewEngine(a.store, lemmatizer, cfg.Search), cache, a.metrics)

	a.crawler, err = crawler.New(cfg, a.store,
		crawler.WithLemmatizer(lemmatizer),
		crawler.WithPublisher(a.publisher),
		crawler.WithMetrics(a.metrics),
		crawler.WithInvalidator(a.searcher),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize crawler: %w", err)
	}

	a.stats = stats.NewService(cfg, a.store, a.crawler)

	slog.Debug("Application initialized",
		"database", cfg.Database.Driver,
		"sites", len(cfg.Sites),
		"redis", cfg.Redis.Addr != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
	)
	return a, nil
}

// stopCrawl stops a running crawl and waits for it to drain
func (a *app) stopCrawl(ctx context.Context) error {
	if err := a.crawler.Stop(ctx); err != nil && !errors.Is(err, apperr.ErrNotRunning) {
		return err
	}
	return a.crawler.Wait(ctx)
}

// Close releases every backend in reverse order of creation
func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
