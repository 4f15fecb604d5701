package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// Client reads trending topics from a trends API and forwards remix queries
// to a webhook. Either endpoint may be empty.
type Client struct {
	trendsURL  string
	webhookURL string
	apiKey     string
	http       *http.Client
}

var (
	_ ports.TrendSource = (*Client)(nil)
	_ ports.Remixer     = (*Client)(nil)
)

// NewClient creates a reusable HTTP client.
func NewClient(trendsURL, webhookURL, apiKey string) *Client {
	return &Client{
		trendsURL:  trendsURL,
		webhookURL: webhookURL,
		apiKey:     apiKey,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

// TrendingTopics returns trend names with every # removed.
func (c *Client) TrendingTopics(ctx context.Context) ([]string, error) {
	if c.trendsURL == "" {
		return nil, nil
	}

	var resp struct {
		Trends []struct {
			Name string `json:"name"`
		} `json:"trends"`
	}
	if err := c.do(ctx, http.MethodGet, c.trendsURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("trending topics: %w", err)
	}

	topics := make([]string, 0, len(resp.Trends))
	for _, trend := range resp.Trends {
		name := strings.TrimSpace(strings.ReplaceAll(trend.Name, "#", ""))
		if name != "" {
			topics = append(topics, name)
		}
	}
	return topics, nil
}

// Remix hands the query for a client to the webhook.
func (c *Client) Remix(ctx context.Context, client domain.Client, query string) error {
	if c.webhookURL == "" {
		return fmt.Errorf("remix webhook is not configured")
	}

	payload := map[string]any{
		"client_id": client.ID,
		"username":  client.Username,
		"query":     query,
	}
	if err := c.do(ctx, http.MethodPost, c.webhookURL, payload, nil); err != nil {
		return fmt.Errorf("remix for %s: %w", client.Username, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, v any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
