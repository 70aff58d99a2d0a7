// Package lemma turns Russian text into normalized word forms.
//
// Words are lowercased, "ё" is folded into "е", tokens that are not purely
// Cyrillic (optionally hyphenated) are dropped, and closed-class words
// (conjunctions, prepositions, particles, interjections) are discarded. The
// remaining words are reduced with the Snowball Russian stemmer; the stem is
// the lemma stored in the index.
package lemma

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kljensen/snowball"
)

// Lemmatizer extracts lemmas from text
type Lemmatizer interface {
	// LemmaCounts maps each lemma to its number of occurrences
	LemmaCounts(text string) map[string]int
	// LemmaSet returns the distinct lemmas, sorted
	LemmaSet(text string) []string
}

var (
	splitRe = regexp.MustCompile(`[^а-яё-]+`)
	wordRe  = regexp.MustCompile(`^[а-я]+(?:-[а-я]+)*$`)
)

// Russian is the Russian lemmatizer
type Russian struct {
	stopWords map[string]struct{}
}

var _ Lemmatizer = (*Russian)(nil)

// NewRussian returns a lemmatizer with the default closed-class word list
func NewRussian() *Russian {
	stop := make(map[string]struct{}, len(closedClassWords))
	for _, w := range closedClassWords {
		stop[w] = struct{}{}
	}
	return &Russian{stopWords: stop}
}

// LemmaCounts implements Lemmatizer
func (r *Russian) LemmaCounts(text string) map[string]int {
	counts := make(map[string]int)
	r.each(text, func(lemma string) {
		counts[lemma]++
	})
	return counts
}

// LemmaSet implements Lemmatizer
func (r *Russian) LemmaSet(text string) []string {
	seen := make(map[string]struct{})
	r.each(text, func(lemma string) {
		seen[lemma] = struct{}{}
	})

	set := make([]string, 0, len(seen))
	for l := range seen {
		set = append(set, l)
	}
	sort.Strings(set)
	return set
}

func (r *Russian) each(text string, fn func(string)) {
	lower := strings.ToLower(text)
	for _, token := range splitRe.Split(lower, -1) {
		word := strings.ReplaceAll(strings.Trim(token, "-"), "ё", "е")
		if word == "" || !wordRe.MatchString(word) {
			continue
		}
		if _, stop := r.stopWords[word]; stop {
			continue
		}
		if lemma := stem(word); lemma != "" {
			fn(lemma)
		}
	}
}

// stem reduces the last part of a hyphenated word and keeps the prefix parts
func stem(word string) string {
	parts := strings.Split(word, "-")
	last := parts[len(parts)-1]
	stemmed, err := snowball.Stem(last, "russian", true)
	if err != nil || stemmed == "" {
		stemmed = last
	}
	parts[len(parts)-1] = stemmed
	return strings.Join(parts, "-")
}
