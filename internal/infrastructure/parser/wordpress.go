package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/source"
)

const (
	wordPressPostsPath = "/wp-json/wp/v2/posts"
	wordPressDateGMT   = "2006-01-02T15:04:05"
	defaultPerPage     = 10
)

// WordPressFetcher reads recent posts from the WordPress REST API.
type WordPressFetcher struct {
	client *http.Client
}

// NewWordPressFetcher wires an HTTP client; nil gets a 15s timeout client.
func NewWordPressFetcher(client *http.Client) *WordPressFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WordPressFetcher{client: client}
}

func (w *WordPressFetcher) Kind() string {
	return domain.SourceWordPress
}

type wpRendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID            int64      `json:"id"`
	Link          string     `json:"link"`
	DateGMT       string     `json:"date_gmt"`
	Title         wpRendered `json:"title"`
	Content       wpRendered `json:"content"`
	FeaturedMedia string     `json:"jetpack_featured_media_url"`
}

// Fetch returns the newest posts of the site at req.Endpoint.
func (w *WordPressFetcher) Fetch(ctx context.Context, req source.Request) ([]domain.ContentItem, error) {
	apiURL, err := buildPostsURL(req.Endpoint, req.Limit)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "NewsPublisher/1.0")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wordpress returned %s", resp.Status)
	}

	var posts []wpPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	items := make([]domain.ContentItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, toContentItem(post))
	}
	return items, nil
}

func toContentItem(post wpPost) domain.ContentItem {
	image := post.FeaturedMedia
	if image == "" {
		image = firstImage(post.Content.Rendered)
	}
	return domain.ContentItem{
		ID:          strconv.FormatInt(post.ID, 10),
		Title:       htmlText(post.Title.Rendered),
		Link:        post.Link,
		ImageURL:    image,
		PublishedAt: parseDateGMT(post.DateGMT),
	}
}

// parseDateGMT returns the zero time when the value is missing or malformed.
func parseDateGMT(raw string) time.Time {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "Z")
	if raw == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(wordPressDateGMT, raw, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// htmlText strips markup and decodes entities of a rendered fragment.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}

func firstImage(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

func buildPostsURL(base string, limit int) (string, error) {
	if limit <= 0 {
		limit = defaultPerPage
	}
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(base), "/"))
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid wordpress url %q", base)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + wordPressPostsPath

	query := parsed.Query()
	query.Set("per_page", strconv.Itoa(limit))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
