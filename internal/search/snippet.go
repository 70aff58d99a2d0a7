package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	snippetContext  = 100 // Characters kept on each side of the first match
	snippetFallback = 200 // Characters returned when nothing matches
)

// Snippet returns a fragment of text around the earliest case-insensitive
// occurrence of any of the lemmas, with every occurrence inside the fragment
// wrapped in <b></b>. Without a match it returns the first 200 characters.
// Lengths are counted in runes.
func Snippet(text string, lemmas []string) string {
	runes := []rune(text)

	// Lowered rune by rune so rune offsets line up with the original
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}
	lowerText := string(lowered)

	first := -1
	for _, l := range lemmas {
		if l == "" {
			continue
		}
		idx := strings.Index(lowerText, strings.ToLower(l))
		if idx < 0 {
			continue
		}
		pos := utf8.RuneCountInString(lowerText[:idx])
		if first < 0 || pos < first {
			first = pos
		}
	}

	if first < 0 {
		return string(runes[:min(len(runes), snippetFallback)])
	}

	start := max(0, first-snippetContext)
	end := min(len(runes), first+snippetContext)
	return highlight(string(runes[start:end]), lemmas)
}

// highlight wraps every occurrence of the lemmas in one pass, preferring
// the longest lemma where several match at the same position
func highlight(fragment string, lemmas []string) string {
	sorted := make([]string, 0, len(lemmas))
	for _, l := range lemmas {
		if l != "" {
			sorted = append(sorted, regexp.QuoteMeta(l))
		}
	}
	if len(sorted) == 0 {
		return fragment
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	re, err := regexp.Compile("(?i)" + strings.Join(sorted, "|"))
	if err != nil {
		return fragment
	}
	return re.ReplaceAllString(fragment, "<b>$0</b>")
}
