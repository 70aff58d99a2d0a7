// Package stats aggregates index statistics per site and in total.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/masahif/sitesearch/internal/config"
	"github.com/masahif/sitesearch/internal/model"
)

// IndexingState reports whether a crawl is running
type IndexingState interface {
	IsIndexing() bool
}

// Total sums all sites
type Total struct {
	Sites    int  `json:"sites" yaml:"sites"`
	Pages    int  `json:"pages" yaml:"pages"`
	Lemmas   int  `json:"lemmas" yaml:"lemmas"`
	Indexing bool `json:"indexing" yaml:"indexing"`
}

// Detail describes one site. StatusTime is in unix milliseconds.
type Detail struct {
	URL        string `json:"url" yaml:"url"`
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"`
	StatusTime int64  `json:"statusTime" yaml:"status_time"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	Pages      int    `json:"pages" yaml:"pages"`
	Lemmas     int    `json:"lemmas" yaml:"lemmas"`
}

// Statistics is the full report
type Statistics struct {
	Total    Total    `json:"total" yaml:"total"`
	Detailed []Detail `json:"detailed" yaml:"detailed"`
}

// Service builds statistics from the store
type Service struct {
	cfg   *config.Config
	store model.Store
	state IndexingState
	now   func() time.Time
}

// NewService creates a statistics service. state may be nil when no crawler
// runs in this process.
func NewService(cfg *config.Config, store model.Store, state IndexingState) *Service {
	return &Service{cfg: cfg, store: store, state: state, now: time.Now}
}

// Statistics reports stored sites with their page and lemma counts. When no
// site has been stored yet the configured sites are listed as FAILED.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		Total:    Total{Sites: len(s.cfg.Sites)},
		Detailed: []Detail{},
	}
	if s.state != nil {
		stats.Total.Indexing = s.state.IsIndexing()
	}

	sites, err := s.store.FindAllSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sites: %w", err)
	}

	if len(sites) == 0 {
		now := s.now().UnixMilli()
		for _, site := range s.cfg.Sites {
			stats.Detailed = append(stats.Detailed, Detail{
				URL:        site.URL,
				Name:       site.Name,
				Status:     string(model.StatusFailed),
				StatusTime: now,
			})
		}
		return stats, nil
	}

	for _, site := range sites {
		pages, err := s.store.CountPagesBySite(ctx, site.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count pages of %s: %w", site.URL, err)
		}
		lemmas, err := s.store.CountLemmasBySite(ctx, site.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count lemmas of %s: %w", site.URL, err)
		}

		status := site.Status
		if status == "" {
			status = model.StatusFailed
		}
		stats.Detailed = append(stats.Detailed, Detail{
			URL:        site.URL,
			Name:       site.Name,
			Status:     string(status),
			StatusTime: site.StatusTime.UnixMilli(),
			Error:      site.LastError,
			Pages:      pages,
			Lemmas:     lemmas,
		})
		stats.Total.Pages += pages
		stats.Total.Lemmas += lemmas
	}
	return stats, nil
}
