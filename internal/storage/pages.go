package storage

import (
	"context"
	"fmt"

	"github.com/masahif/sitesearch/internal/model"
)

const pageColumns = `id, site_id, path, code, content`

func scanPage(row rowScanner) (*model.Page, error) {
	var page model.Page
	if err := row.Scan(&page.ID, &page.SiteID, &page.Path, &page.Code, &page.Content); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindPageByID looks up a page by id
func (s *Store) FindPageByID(ctx context.Context, id int64) (*model.Page, error) {
	page, err := scanPage(s.queryRow(ctx, `SELECT `+pageColumns+` FROM page WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return page, nil
}

// FindPageBySiteAndPath looks up a page by its root-relative path
func (s *Store) FindPageBySiteAndPath(ctx context.Context, siteID int64, path string) (*model.Page, error) {
	page, err := scanPage(s.queryRow(ctx,
		`SELECT `+pageColumns+` FROM page WHERE site_id = ? AND path = ?`, siteID, path))
	if err != nil {
		return nil, notFound(err)
	}
	return page, nil
}

// ExistsPageBySiteAndPath reports whether the path has been stored for the site
func (s *Store) ExistsPageBySiteAndPath(ctx context.Context, siteID int64, path string) (bool, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM page WHERE site_id = ? AND path = ?`, siteID, path)
	if err != nil {
		return false, fmt.Errorf("failed to check page: %w", err)
	}
	return n > 0, nil
}

// FindAllPagesBySite returns the site's pages ordered by path
func (s *Store) FindAllPagesBySite(ctx context.Context, siteID int64) ([]model.Page, error) {
	rows, err := s.query(ctx, `SELECT `+pageColumns+` FROM page WHERE site_id = ? ORDER BY path`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// CountPagesBySite returns the number of stored pages for the site
func (s *Store) CountPagesBySite(ctx context.Context, siteID int64) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM page WHERE site_id = ?`, siteID)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// SavePage inserts a new page or updates an existing one
func (s *Store) SavePage(ctx context.Context, page *model.Page) error {
	content := sanitizeText(page.Content)

	if page.ID == 0 {
		err := s.queryRow(ctx, `
			INSERT INTO page (site_id, path, code, content)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`, page.SiteID, page.Path, page.Code, content).Scan(&page.ID)
		if err != nil {
			return fmt.Errorf("failed to insert page %s: %w", page.Path, err)
		}
		return nil
	}

	res, err := s.exec(ctx, `UPDATE page SET site_id = ?, path = ?, code = ?, content = ? WHERE id = ?`,
		page.SiteID, page.Path, page.Code, content, page.ID)
	if err != nil {
		return fmt.Errorf("failed to update page %s: %w", page.Path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeletePage removes a page and its postings, adjusting lemma frequencies
func (s *Store) DeletePage(ctx context.Context, id int64) error {
	return s.withinTx(ctx, func(tx *Store) error {
		if err := tx.DeleteAllPostingsByPage(ctx, id); err != nil {
			return err
		}
		if _, err := tx.exec(ctx, `DELETE FROM page WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete page: %w", err)
		}
		return nil
	})
}

// DeleteAllPagesBySite removes every page of the site. With no pages left
// the site's postings and lemmas go too.
func (s *Store) DeleteAllPagesBySite(ctx context.Context, siteID int64) error {
	return s.withinTx(ctx, func(tx *Store) error {
		if err := tx.DeleteAllPostingsBySite(ctx, siteID); err != nil {
			return err
		}
		if _, err := tx.exec(ctx, `DELETE FROM page WHERE site_id = ?`, siteID); err != nil {
			return fmt.Errorf("failed to delete pages: %w", err)
		}
		return nil
	})
}
