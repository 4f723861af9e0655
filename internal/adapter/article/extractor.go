// Package article fetches a news article URL and extracts its readable
// text. Paragraph text is what gets summarized; navigation, boilerplate and
// script content are skipped.
package article

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var (
	ErrFetch = errors.New("article fetch failed")
	ErrParse = errors.New("article parse failed")
)

type Extractor struct {
	client    *http.Client
	userAgent string
}

func NewExtractor() *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: 20 * time.Second},
		userAgent: "newswatch/1.0",
	}
}

// Extract downloads url and returns the article body text: the text content
// of every <p> element outside script/style/nav chrome, paragraphs joined
// by blank lines. An article page with no paragraphs yields an empty string
// and no error; the caller decides how to degrade.
func (e *Extractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	return ExtractText(doc), nil
}

// skippedElements never contribute article text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"figure":   true,
}

// ExtractText walks a parsed document and joins the text of its paragraph
// elements.
func ExtractText(doc *html.Node) string {
	var paragraphs []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "p" {
				if t := nodeText(n); t != "" {
					paragraphs = append(paragraphs, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(paragraphs, "\n\n")
}

func nodeText(n *html.Node) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(b.String()), " ")
}
