// Package parser extracts catalog metadata from external sources: page
// titles and descriptions from fetched HTML, and item type suggestions
// from file content.
package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	apperrors "github.com/kimhsiao/infovault/backend/internal/errors"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// maxFetchBytes caps how much of a remote page is read. Metadata lives
// in <head>, so a couple of megabytes is already generous.
const maxFetchBytes = 2 << 20

// PageMetadata holds the fields suggested to the user when adding a
// URL item.
type PageMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ExtractPageMetadata parses HTML and pulls out a title, description
// and keyword tags. sourceURL is used as the title fallback when the
// page provides none.
func ExtractPageMetadata(r io.Reader, sourceURL string) (*PageMetadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrParseFailed, "failed to parse HTML", err)
	}

	meta := &PageMetadata{
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		Tags:        extractKeywords(doc),
	}
	if meta.Title == "" {
		meta.Title = sourceURL
	}
	return meta, nil
}

// FetchPageMetadata retrieves a URL and extracts its metadata. Only
// http and https schemes are accepted.
func FetchPageMetadata(ctx context.Context, rawURL string) (*PageMetadata, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.New(apperrors.ErrValidation, fmt.Sprintf("invalid URL: %s", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrParseFailed, "failed to build request", err)
	}
	req.Header.Set("User-Agent", "InfoVault/1.0")

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrParseFailed, "failed to fetch page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrParseFailed,
			fmt.Sprintf("unexpected status %d fetching %s", resp.StatusCode, rawURL))
	}

	return ExtractPageMetadata(io.LimitReader(resp.Body, maxFetchBytes), rawURL)
}

var fetchClient = &http.Client{Timeout: 15 * time.Second}

// extractTitle prefers the <title> tag, then og:title, then the first h1.
func extractTitle(doc *html.Node) string {
	title := firstText(doc, "title")
	if title == "" {
		title = metaContent(doc, "property", "og:title")
	}
	if title == "" {
		title = firstText(doc, "h1")
	}
	return truncate(cleanText(title), 500)
}

// extractDescription prefers meta description, then og:description.
func extractDescription(doc *html.Node) string {
	desc := metaContent(doc, "name", "description")
	if desc == "" {
		desc = metaContent(doc, "property", "og:description")
	}
	return truncate(cleanText(desc), 1000)
}

// extractKeywords splits meta keywords into tag labels.
func extractKeywords(doc *html.Node) []string {
	keywords := metaContent(doc, "name", "keywords")
	if keywords == "" {
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(keywords, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// firstText returns the text content of the first occurrence of a tag.
func firstText(doc *html.Node, tag string) string {
	var text string

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				text = strings.TrimSpace(n.FirstChild.Data)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
			if text != "" {
				return
			}
		}
	}
	f(doc)

	return text
}

// metaContent returns the content attribute of the first meta tag whose
// attrKey attribute equals attrVal.
func metaContent(doc *html.Node, attrKey, attrVal string) string {
	var content string

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			matched := false
			metaContent := ""
			for _, attr := range n.Attr {
				if attr.Key == attrKey && strings.EqualFold(attr.Val, attrVal) {
					matched = true
				}
				if attr.Key == "content" {
					metaContent = attr.Val
				}
			}
			if matched && metaContent != "" {
				content = metaContent
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
			if content != "" {
				return
			}
		}
	}
	f(doc)

	return content
}

// cleanText normalizes whitespace in text.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// truncate truncates string to max length at a word boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if i := strings.LastIndex(s[:maxLen], " "); i > 0 {
		return s[:i] + "..."
	}
	return s[:maxLen] + "..."
}
