package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsPublisher/internal/domain"
)

func TestCaptionParsesFirstChoice(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		if !strings.Contains(req.Messages[1].Content, "Title: Rain expected") {
			t.Errorf("item not sent to the model: %q", req.Messages[1].Content)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Grab an umbrella! #weather  "}}]}`))
	}))
	defer server.Close()

	c := NewChatGPTClient(Config{Endpoint: server.URL, Model: "gpt-4o-mini", APIKey: "k"})
	caption, err := c.Caption(context.Background(), domain.ContentItem{Title: "Rain expected", Link: "https://x"})
	if err != nil {
		t.Fatalf("caption: %v", err)
	}
	if caption != "Grab an umbrella! #weather" {
		t.Fatalf("unexpected caption %q", caption)
	}
}

func TestCaptionErrors(t *testing.T) {
	t.Parallel()

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer empty.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer failing.Close()

	ctx := context.Background()
	item := domain.ContentItem{Title: "t"}
	if _, err := NewChatGPTClient(Config{Endpoint: empty.URL, Model: "m", APIKey: "k"}).Caption(ctx, item); err == nil {
		t.Fatalf("expected error for empty choices")
	}
	if _, err := NewChatGPTClient(Config{Endpoint: failing.URL, Model: "m", APIKey: "k"}).Caption(ctx, item); err == nil {
		t.Fatalf("expected error for 429")
	}
	if _, err := NewChatGPTClient(Config{Model: "m"}).Caption(ctx, item); err == nil {
		t.Fatalf("expected error without api key")
	}
}
