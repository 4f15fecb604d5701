package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/source"
)

// RSSFetcher reads RSS and Atom feeds.
type RSSFetcher struct {
	parser *gofeed.Parser
}

// NewRSSFetcher wires an HTTP client into a gofeed parser.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = "NewsPublisher/1.0"
	return &RSSFetcher{parser: p}
}

func (r *RSSFetcher) Kind() string {
	return domain.SourceRSS
}

// Fetch parses the feed at req.Endpoint and keeps at most req.Limit entries
// in feed order.
func (r *RSSFetcher) Fetch(ctx context.Context, req source.Request) ([]domain.ContentItem, error) {
	feed, err := r.parser.ParseURLWithContext(req.Endpoint, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.Endpoint, err)
	}

	items := make([]domain.ContentItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item, ok := convertFeedItem(entry)
		if !ok {
			continue
		}
		items = append(items, item)
		if req.Limit > 0 && len(items) == req.Limit {
			break
		}
	}
	return items, nil
}

func convertFeedItem(entry *gofeed.Item) (domain.ContentItem, bool) {
	if entry == nil {
		return domain.ContentItem{}, false
	}
	id := strings.TrimSpace(entry.GUID)
	if id == "" {
		id = strings.TrimSpace(entry.Link)
	}
	if id == "" {
		return domain.ContentItem{}, false
	}

	var published time.Time
	switch {
	case entry.PublishedParsed != nil:
		published = entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		published = entry.UpdatedParsed.UTC()
	}

	return domain.ContentItem{
		ID:          id,
		Title:       htmlText(entry.Title),
		Link:        entry.Link,
		ImageURL:    feedImage(entry),
		PublishedAt: published,
	}, true
}

func feedImage(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return firstImage(entry.Content)
}
