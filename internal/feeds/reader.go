// Package feeds turns RSS and Atom feeds into NewsItems.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/processing"
)

// summaryLimit caps summaries taken from full item content.
const summaryLimit = 500

// Reader downloads and parses feeds.
type Reader struct {
	client    *http.Client
	userAgent string
}

// NewReader returns a Reader whose requests time out after timeout.
func NewReader(timeout time.Duration, userAgent string) *Reader {
	return &Reader{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads url and converts its entries, attributing them to sourceID.
func (r *Reader) Fetch(ctx context.Context, sourceID, url string) ([]models.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}

	return Parse(resp.Body, sourceID)
}

// Parse reads a feed document and converts every entry that has a title or summary.
func Parse(body io.Reader, sourceID string) ([]models.NewsItem, error) {
	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	language := normalizeLanguage(feed.Language)
	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := convert(entry, sourceID, language)
		if item.Title == "" && item.Summary == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func convert(entry *gofeed.Item, sourceID, language string) models.NewsItem {
	summary := plainText(entry.Description)
	if summary == "" {
		summary = processing.Truncate(plainText(entry.Content), summaryLimit)
	}

	var published string
	switch {
	case entry.PublishedParsed != nil:
		published = entry.PublishedParsed.UTC().Format(time.RFC3339)
	case entry.UpdatedParsed != nil:
		published = entry.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	return models.NewsItem{
		Title:       strings.TrimSpace(plainText(entry.Title)),
		Summary:     summary,
		SourceID:    sourceID,
		Link:        strings.TrimSpace(entry.Link),
		PublishedAt: published,
		Language:    language,
	}
}

// plainText drops markup from feed HTML fragments.
func plainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// normalizeLanguage maps tags like "en-US" to "en".
func normalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
