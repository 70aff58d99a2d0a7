package parser

import (
	"reflect"
	"strings"
	"testing"
)

const samplePage = `
<!DOCTYPE html>
<html>
<head>
	<title> Новости леса </title>
	<style>body { color: red }</style>
	<script>var hidden = "не показывать";</script>
</head>
<body>
	<h1>Лес</h1>
	<p>Сегодня в лесу   тихо.</p>
	<svg><title>иконка</title></svg>
	<a href="/relative-link">Relative Link</a>
	<a href="https://example.com/absolute-link#section">Absolute Link</a>
	<a href="https://external.com/page" rel="nofollow">External Link</a>
	<a href="#anchor">Anchor Link</a>
	<a href="javascript:void(0)">JavaScript Link</a>
	<a href="mailto:someone@example.com">Mail</a>
	<a href="/relative-link">Duplicate</a>
	<a href="child/page">Nested</a>
	<noscript>включите javascript</noscript>
</body>
</html>
`

func TestHTMLParser(t *testing.T) {
	parser, err := NewHTMLParser("https://example.com/docs/index")
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	result, err := parser.Parse([]byte(samplePage))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}

	if result.Title != "Новости леса" {
		t.Errorf("Expected title 'Новости леса', got '%s'", result.Title)
	}

	expectedLinks := []string{
		"https://example.com/relative-link",
		"https://example.com/absolute-link",
		"https://external.com/page",
		"https://example.com/docs/child/page",
	}
	if !reflect.DeepEqual(result.Links, expectedLinks) {
		t.Errorf("Links = %v, want %v", result.Links, expectedLinks)
	}

	if !strings.Contains(result.Text, "Сегодня в лесу тихо.") {
		t.Errorf("Expected collapsed body text, got %q", result.Text)
	}
	for _, hidden := range []string{"не показывать", "color: red", "иконка", "включите"} {
		if strings.Contains(result.Text, hidden) {
			t.Errorf("Text should not contain %q: %q", hidden, result.Text)
		}
	}
}

func TestExtractHelpers(t *testing.T) {
	if got := ExtractTitle(samplePage); got != "Новости леса" {
		t.Errorf("ExtractTitle() = %q", got)
	}

	if got := ExtractTitle("<p>no title</p>"); got != "" {
		t.Errorf("ExtractTitle() without title = %q", got)
	}

	text := ExtractText(samplePage)
	if !strings.HasPrefix(text, "Новости леса Лес") {
		t.Errorf("ExtractText() = %q", text)
	}

	links, err := ExtractLinks(`<a href="/a">a</a><a href="b#x">b</a>`, "http://site.test/dir/")
	if err != nil {
		t.Fatalf("ExtractLinks() error: %v", err)
	}
	want := []string{"http://site.test/a", "http://site.test/dir/b"}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("ExtractLinks() = %v, want %v", links, want)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	parser, err := NewHTMLParser("https://example.com/")
	if err != nil {
		t.Fatal(err)
	}

	result, err := parser.Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if result.Title != "" || result.Text != "" || len(result.Links) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}
