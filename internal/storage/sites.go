package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/masahif/sitesearch/internal/model"
)

const siteColumns = `id, url, name, status, status_time, last_error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*model.Site, error) {
	var (
		site       model.Site
		status     string
		statusTime int64
		lastError  sql.NullString
	)
	if err := row.Scan(&site.ID, &site.URL, &site.Name, &status, &statusTime, &lastError); err != nil {
		return nil, err
	}
	site.Status = model.SiteStatus(status)
	site.StatusTime = time.UnixMilli(statusTime)
	site.LastError = lastError.String
	return &site, nil
}

// FindSiteByURL looks up a site by its root url
func (s *Store) FindSiteByURL(ctx context.Context, url string) (*model.Site, error) {
	site, err := scanSite(s.queryRow(ctx, `SELECT `+siteColumns+` FROM site WHERE url = ?`, url))
	if err != nil {
		return nil, notFound(err)
	}
	return site, nil
}

// FindAllSites returns every site ordered by id
func (s *Store) FindAllSites(ctx context.Context) ([]model.Site, error) {
	rows, err := s.query(ctx, `SELECT `+siteColumns+` FROM site ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	return sites, rows.Err()
}

// SaveSite inserts a new site or updates an existing one
func (s *Store) SaveSite(ctx context.Context, site *model.Site) error {
	if site.StatusTime.IsZero() {
		site.StatusTime = time.Now()
	}
	lastError := sql.NullString{String: sanitizeText(site.LastError), Valid: site.LastError != ""}

	if site.ID == 0 {
		err := s.queryRow(ctx, `
			INSERT INTO site (url, name, status, status_time, last_error)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`, site.URL, site.Name, string(site.Status), site.StatusTime.UnixMilli(), lastError).Scan(&site.ID)
		if err != nil {
			return fmt.Errorf("failed to insert site %s: %w", site.URL, err)
		}
		return nil
	}

	res, err := s.exec(ctx, `
		UPDATE site SET url = ?, name = ?, status = ?, status_time = ?, last_error = ?
		WHERE id = ?
	`, site.URL, site.Name, string(site.Status), site.StatusTime.UnixMilli(), lastError, site.ID)
	if err != nil {
		return fmt.Errorf("failed to update site %s: %w", site.URL, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteSite removes a site and everything it owns
func (s *Store) DeleteSite(ctx context.Context, id int64) error {
	return s.withinTx(ctx, func(tx *Store) error {
		if err := tx.DeleteAllPagesBySite(ctx, id); err != nil {
			return err
		}
		if _, err := tx.exec(ctx, `DELETE FROM site WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete site: %w", err)
		}
		return nil
	})
}
