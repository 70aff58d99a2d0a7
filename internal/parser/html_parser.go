// Package parser extracts the title, visible text and outbound links from
// HTML documents.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTMLParser extracts content and links from HTML fetched from baseURL
type HTMLParser struct {
	baseURL        *url.URL
	allowedSchemes []string
}

// ParseResult contains the parsed HTML data
type ParseResult struct {
	Title string
	Text  string
	// Links are absolute, fragment-free and deduplicated in document order
	Links []string
}

// NewHTMLParser creates a parser that resolves links against baseURL and
// keeps only http and https links
func NewHTMLParser(baseURL string) (*HTMLParser, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &HTMLParser{
		baseURL:        parsedURL,
		allowedSchemes: []string{"http", "https"},
	}, nil
}

// Parse extracts title, text and links in one pass over the document
func (p *HTMLParser) Parse(content []byte) (*ParseResult, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := &ParseResult{Links: []string{}}
	seen := make(map[string]bool)
	p.traverse(doc, result, seen)
	result.Text = visibleText(doc)

	return result, nil
}

// traverse recursively walks the HTML tree collecting the title and links
func (p *HTMLParser) traverse(n *html.Node, result *ParseResult, seen map[string]bool) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if result.Title == "" {
				result.Title = strings.TrimSpace(nodeText(n))
			}
		case "a", "area":
			if href, ok := attr(n, "href"); ok {
				if link, ok := p.resolve(href); ok && !seen[link] {
					seen[link] = true
					result.Links = append(result.Links, link)
				}
			}
		case "svg":
			// <title> inside svg is not the document title
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.traverse(c, result, seen)
	}
}

// resolve turns href into an absolute, fragment-free url with an allowed scheme
func (p *HTMLParser) resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	abs := p.baseURL.ResolveReference(ref)
	if !p.isAllowedScheme(abs.Scheme) || abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

func (p *HTMLParser) isAllowedScheme(scheme string) bool {
	for _, s := range p.allowedSchemes {
		if strings.EqualFold(scheme, s) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// visibleText returns the document text without script-like elements,
// whitespace collapsed to single spaces
func visibleText(root *html.Node) string {
	doc := goquery.NewDocumentFromNode(root)
	doc.Find("script, style, noscript, template, svg").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// ExtractText returns the visible text of an HTML document
func ExtractText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return visibleText(doc)
}

// ExtractTitle returns the document title, or "" when there is none
func ExtractTitle(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// ExtractLinks returns the absolute links of content resolved against baseURL
func ExtractLinks(content, baseURL string) ([]string, error) {
	p, err := NewHTMLParser(baseURL)
	if err != nil {
		return nil, err
	}
	result, err := p.Parse([]byte(content))
	if err != nil {
		return nil, err
	}
	return result.Links, nil
}
