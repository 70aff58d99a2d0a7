package lemma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLemmaCountsGroupsInflections(t *testing.T) {
	r := NewRussian()

	counts := r.LemmaCounts("Лес, леса и лесом! Лес.")
	assert.Equal(t, map[string]int{"лес": 4}, counts)
}

func TestLemmaCountsDropsClosedClassWords(t *testing.T) {
	r := NewRussian()

	counts := r.LemmaCounts("и в на под или же ах но")
	assert.Empty(t, counts)
}

func TestLemmaCountsIgnoresOtherAlphabets(t *testing.T) {
	r := NewRussian()

	counts := r.LemmaCounts("Hello world 2024 дом123 лес")
	assert.NotContains(t, counts, "hello")
	assert.Contains(t, counts, "лес")
	assert.Contains(t, counts, "дом", "digits split tokens")
	assert.Len(t, counts, 2)
}

func TestYoIsFolded(t *testing.T) {
	r := NewRussian()

	a := r.LemmaSet("ёлка")
	b := r.LemmaSet("елка")
	assert.Equal(t, a, b)
	assert.Len(t, a, 1)
}

func TestHyphenatedWordsStayTogether(t *testing.T) {
	r := NewRussian()

	set := r.LemmaSet("кто-то пришёл --- -лес-")
	var hyphenated string
	for _, l := range set {
		if strings.HasPrefix(l, "кто-") {
			hyphenated = l
		}
	}
	assert.NotEmpty(t, hyphenated)
	assert.Contains(t, set, "лес")
}

func TestLemmaSetIsSortedAndDistinct(t *testing.T) {
	r := NewRussian()

	set := r.LemmaSet("река лес река поле лес")
	assert.Equal(t, []string{"лес", "пол", "рек"}, set)
}

func TestEmptyText(t *testing.T) {
	r := NewRussian()

	assert.Empty(t, r.LemmaCounts(""))
	assert.Empty(t, r.LemmaSet("   "))
}
