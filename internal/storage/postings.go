package storage

import (
	"context"
	"fmt"

	"github.com/masahif/sitesearch/internal/model"
)

const postingColumns = `id, page_id, lemma_id, lemma_rank`

func scanPosting(row rowScanner) (*model.Posting, error) {
	var p model.Posting
	if err := row.Scan(&p.ID, &p.PageID, &p.LemmaID, &p.Rank); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) queryPostings(ctx context.Context, query string, args ...any) ([]model.Posting, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query postings: %w", err)
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		postings = append(postings, *p)
	}
	return postings, rows.Err()
}

// FindPostingsByPage returns the postings of a page
func (s *Store) FindPostingsByPage(ctx context.Context, pageID int64) ([]model.Posting, error) {
	return s.queryPostings(ctx, `SELECT `+postingColumns+` FROM posting WHERE page_id = ? ORDER BY lemma_id`, pageID)
}

// FindPostingsByLemma returns the postings of a lemma
func (s *Store) FindPostingsByLemma(ctx context.Context, lemmaID int64) ([]model.Posting, error) {
	return s.queryPostings(ctx, `SELECT `+postingColumns+` FROM posting WHERE lemma_id = ? ORDER BY page_id`, lemmaID)
}

// FindPostingByPageAndLemma looks up the posting for a (page, lemma) pair
func (s *Store) FindPostingByPageAndLemma(ctx context.Context, pageID, lemmaID int64) (*model.Posting, error) {
	p, err := scanPosting(s.queryRow(ctx,
		`SELECT `+postingColumns+` FROM posting WHERE page_id = ? AND lemma_id = ?`, pageID, lemmaID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// SavePosting upserts the posting on (page, lemma)
func (s *Store) SavePosting(ctx context.Context, posting *model.Posting) error {
	err := s.queryRow(ctx, `
		INSERT INTO posting (page_id, lemma_id, lemma_rank) VALUES (?, ?, ?)
		ON CONFLICT (page_id, lemma_id) DO UPDATE SET lemma_rank = excluded.lemma_rank
		RETURNING id
	`, posting.PageID, posting.LemmaID, posting.Rank).Scan(&posting.ID)
	if err != nil {
		return fmt.Errorf("failed to save posting: %w", err)
	}
	return nil
}

// DeleteAllPostingsByPage removes a page's postings and decrements the
// frequency of every lemma they referenced. Lemmas left at zero stay, so a
// concurrent ApplyLemmas on another page always finds the row it increments.
func (s *Store) DeleteAllPostingsByPage(ctx context.Context, pageID int64) error {
	return s.withinTx(ctx, func(tx *Store) error {
		if _, err := tx.exec(ctx, `
			UPDATE lemma SET frequency = frequency - 1
			WHERE id IN (SELECT lemma_id FROM posting WHERE page_id = ?)
		`, pageID); err != nil {
			return fmt.Errorf("failed to decrement lemma frequencies: %w", err)
		}
		if _, err := tx.exec(ctx, `DELETE FROM posting WHERE page_id = ?`, pageID); err != nil {
			return fmt.Errorf("failed to delete postings: %w", err)
		}
		return nil
	})
}

// DeleteAllPostingsBySite removes every posting of the site. All of the
// site's lemmas drop to zero frequency and are removed with them.
func (s *Store) DeleteAllPostingsBySite(ctx context.Context, siteID int64) error {
	return s.withinTx(ctx, func(tx *Store) error {
		if _, err := tx.exec(ctx,
			`DELETE FROM posting WHERE page_id IN (SELECT id FROM page WHERE site_id = ?)`, siteID); err != nil {
			return fmt.Errorf("failed to delete postings: %w", err)
		}
		if _, err := tx.exec(ctx, `DELETE FROM lemma WHERE site_id = ?`, siteID); err != nil {
			return fmt.Errorf("failed to delete lemmas: %w", err)
		}
		return nil
	})
}
