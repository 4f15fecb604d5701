package llm

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

const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Config selects the chat completions endpoint and prompt.
type Config struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
}

// ChatGPTClient writes post captions through an OpenAI-compatible API.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.CaptionWriter = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg Config) *ChatGPTClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &ChatGPTClient{
		endpoint:     endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Caption asks the model for post copy about item.
func (c *ChatGPTClient) Caption(ctx context.Context, item domain.ContentItem) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": fmt.Sprintf("Title: %s\nLink: %s", item.Title, item.Link)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request caption: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}
	caption := strings.TrimSpace(out.Choices[0].Message.Content)
	if caption == "" {
		return "", fmt.Errorf("chatgpt returned an empty caption")
	}
	return caption, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You write short, engaging Instagram captions for news articles. Keep the link and add a few relevant hashtags."
	}
	return prompt
}
