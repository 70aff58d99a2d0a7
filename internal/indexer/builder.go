// Package indexer maintains the per-site inverted index: lemma rows with
// page frequencies and postings carrying per-page occurrence counts.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/masahif/sitesearch/internal/model"
)

// Builder applies lemma counts of a page to the store
type Builder struct {
	store model.Store
}

// NewBuilder creates a builder writing through store
func NewBuilder(store model.Store) *Builder {
	return &Builder{store: store}
}

// ApplyLemmas records counts for page in one transaction. For each lemma it
// finds or creates the lemma row, bumps its frequency once if the page had
// no posting for it yet, and upserts the posting with rank = count.
//
// Callers re-indexing a page must delete its old postings first; ApplyLemmas
// never removes postings. Lemmas are processed in sorted order so concurrent
// transactions touching the same rows lock them in the same sequence.
func (b *Builder) ApplyLemmas(ctx context.Context, page *model.Page, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}

	texts := make([]string, 0, len(counts))
	for text := range counts {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	return b.store.WithinTx(ctx, func(tx model.Store) error {
		for _, text := range texts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := applyLemma(ctx, tx, page, text, counts[text]); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyLemma(ctx context.Context, tx model.Store, page *model.Page, text string, count int) error {
	lemma, err := tx.FindOrCreateLemma(ctx, page.SiteID, text)
	if err != nil {
		return fmt.Errorf("failed to find or create lemma %q: %w", text, err)
	}

	_, err = tx.FindPostingByPageAndLemma(ctx, page.ID, lemma.ID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		if err := tx.IncrementLemmaFrequency(ctx, lemma.ID, 1); err != nil {
			return fmt.Errorf("failed to increment frequency of %q: %w", text, err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up posting for %q: %w", text, err)
	}

	posting := &model.Posting{PageID: page.ID, LemmaID: lemma.ID, Rank: float64(count)}
	if err := tx.SavePosting(ctx, posting); err != nil {
		return fmt.Errorf("failed to save posting for %q: %w", text, err)
	}
	return nil
}
