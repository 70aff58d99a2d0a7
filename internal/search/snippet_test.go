package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippetWithoutMatch(t *testing.T) {
	text := strings.Repeat("я", 300)

	got := Snippet(text, []string{"лес"})
	assert.Equal(t, 200, utf8.RuneCountInString(got))

	assert.Equal(t, "короткий текст", Snippet("короткий текст", nil))
	assert.Equal(t, "", Snippet("", []string{"лес"}))
}

func TestSnippetHighlightsKeepingCase(t *testing.T) {
	got := Snippet("Тёмный Лес шумит, а лес молчит", []string{"лес"})
	assert.Equal(t, "Тёмный <b>Лес</b> шумит, а <b>лес</b> молчит", got)
}

func TestSnippetWindow(t *testing.T) {
	text := strings.Repeat("ж", 150) + "лес" + strings.Repeat("щ", 150)

	got := Snippet(text, []string{"лес"})

	assert.True(t, strings.HasPrefix(got, strings.Repeat("ж", 100)+"<b>лес</b>"), got)
	assert.False(t, strings.HasPrefix(got, strings.Repeat("ж", 101)))
	plain := strings.ReplaceAll(strings.ReplaceAll(got, "<b>", ""), "</b>", "")
	assert.Equal(t, 200, utf8.RuneCountInString(plain))
}

func TestSnippetEarliestLemmaWins(t *testing.T) {
	text := "поле " + strings.Repeat("ж", 300) + " река"

	got := Snippet(text, []string{"река", "пол"})
	assert.True(t, strings.HasPrefix(got, "<b>пол</b>е"), got)
	assert.NotContains(t, got, "река")
}

func TestSnippetPrefersLongestLemma(t *testing.T) {
	got := Snippet("лесник", []string{"лес", "лесник"})
	assert.Equal(t, "<b>лесник</b>", got)
}

func TestSnippetQuotesLemmas(t *testing.T) {
	got := Snippet("цена (руб) и c++", []string{"c++"})
	assert.Equal(t, "цена (руб) и <b>c++</b>", got)
}
