package storage

import (
	"context"
	"fmt"

	"github.com/masahif/sitesearch/internal/model"
)

const lemmaColumns = `id, site_id, lemma, frequency`

func scanLemma(row rowScanner) (*model.Lemma, error) {
	var lemma model.Lemma
	if err := row.Scan(&lemma.ID, &lemma.SiteID, &lemma.Text, &lemma.Frequency); err != nil {
		return nil, err
	}
	return &lemma, nil
}

// FindLemmaBySiteAndText looks up a lemma row
func (s *Store) FindLemmaBySiteAndText(ctx context.Context, siteID int64, text string) (*model.Lemma, error) {
	lemma, err := scanLemma(s.queryRow(ctx,
		`SELECT `+lemmaColumns+` FROM lemma WHERE site_id = ? AND lemma = ?`, siteID, text))
	if err != nil {
		return nil, notFound(err)
	}
	return lemma, nil
}

// FindOrCreateLemma inserts the lemma with frequency 0 unless it exists, then reads it back
func (s *Store) FindOrCreateLemma(ctx context.Context, siteID int64, text string) (*model.Lemma, error) {
	_, err := s.exec(ctx, `
		INSERT INTO lemma (site_id, lemma, frequency) VALUES (?, ?, 0)
		ON CONFLICT (site_id, lemma) DO NOTHING
	`, siteID, text)
	if err != nil {
		return nil, fmt.Errorf("failed to insert lemma %q: %w", text, err)
	}
	return s.FindLemmaBySiteAndText(ctx, siteID, text)
}

// FindLemmasBySite returns lemmas ordered by ascending frequency.
// A non-nil texts restricts the result to those lemma texts.
func (s *Store) FindLemmasBySite(ctx context.Context, siteID int64, texts []string) ([]model.Lemma, error) {
	query := `SELECT ` + lemmaColumns + ` FROM lemma WHERE site_id = ?`
	args := []any{siteID}
	if texts != nil {
		if len(texts) == 0 {
			return nil, nil
		}
		query += ` AND lemma IN (` + placeholders(len(texts)) + `)`
		for _, t := range texts {
			args = append(args, t)
		}
	}
	query += ` ORDER BY frequency, lemma`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lemmas: %w", err)
	}
	defer rows.Close()

	var lemmas []model.Lemma
	for rows.Next() {
		lemma, err := scanLemma(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lemma: %w", err)
		}
		lemmas = append(lemmas, *lemma)
	}
	return lemmas, rows.Err()
}

// CountLemmasBySite returns the number of lemma rows for the site
func (s *Store) CountLemmasBySite(ctx context.Context, siteID int64) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM lemma WHERE site_id = ?`, siteID)
	if err != nil {
		return 0, fmt.Errorf("failed to count lemmas: %w", err)
	}
	return n, nil
}

// SaveLemma inserts a new lemma or updates an existing one
func (s *Store) SaveLemma(ctx context.Context, lemma *model.Lemma) error {
	if lemma.ID == 0 {
		err := s.queryRow(ctx, `
			INSERT INTO lemma (site_id, lemma, frequency) VALUES (?, ?, ?)
			RETURNING id
		`, lemma.SiteID, lemma.Text, lemma.Frequency).Scan(&lemma.ID)
		if err != nil {
			return fmt.Errorf("failed to insert lemma %q: %w", lemma.Text, err)
		}
		return nil
	}

	res, err := s.exec(ctx, `UPDATE lemma SET site_id = ?, lemma = ?, frequency = ? WHERE id = ?`,
		lemma.SiteID, lemma.Text, lemma.Frequency, lemma.ID)
	if err != nil {
		return fmt.Errorf("failed to update lemma %q: %w", lemma.Text, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// IncrementLemmaFrequency adds delta to the stored frequency in place
func (s *Store) IncrementLemmaFrequency(ctx context.Context, id int64, delta int) error {
	res, err := s.exec(ctx, `UPDATE lemma SET frequency = frequency + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to increment lemma frequency: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteAllLemmasBySite removes the site's lemmas and the postings that reference them
func (s *Store) DeleteAllLemmasBySite(ctx context.Context, siteID int64) error {
	return s.withinTx(ctx, func(tx *Store) error {
		if _, err := tx.exec(ctx,
			`DELETE FROM posting WHERE lemma_id IN (SELECT id FROM lemma WHERE site_id = ?)`, siteID); err != nil {
			return fmt.Errorf("failed to delete postings: %w", err)
		}
		if _, err := tx.exec(ctx, `DELETE FROM lemma WHERE site_id = ?`, siteID); err != nil {
			return fmt.Errorf("failed to delete lemmas: %w", err)
		}
		return nil
	})
}
