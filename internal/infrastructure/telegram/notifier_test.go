package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsPublisher/internal/domain"
)

func TestChatID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		id   string
		want bool
	}{
		{"telegram:12345", "12345", true},
		{"telegram: -100200 ", "-100200", true},
		{"telegram:", "", false},
		{"someone@example.com", "", false},
	}
	for _, tc := range cases {
		id, ok := ChatID(tc.in)
		if id != tc.id || ok != tc.want {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", tc.in, id, ok, tc.id, tc.want)
		}
	}
}

func TestSendPostsMessage(t *testing.T) {
	t.Parallel()

	var gotChat, gotText, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier("token-1", server.URL)
	err := n.Send(context.Background(), domain.Report{
		Recipient: "telegram:777",
		Subject:   "Daily report",
		Body:      "1. Item",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/bottoken-1/sendMessage" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotChat != "777" || !strings.HasPrefix(gotText, "Daily report\n\n1. Item") {
		t.Fatalf("unexpected message chat=%s text=%q", gotChat, gotText)
	}
}

func TestSendRejectsBadInput(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	ctx := context.Background()
	if err := NewNotifier("token", server.URL).Send(ctx, domain.Report{Recipient: "a@b.c"}); err == nil {
		t.Fatalf("expected error for non-telegram recipient")
	}
	if err := NewNotifier("", server.URL).Send(ctx, domain.Report{Recipient: "telegram:1"}); err == nil {
		t.Fatalf("expected error without bot token")
	}
	if err := NewNotifier("token", server.URL).Send(ctx, domain.Report{Recipient: "telegram:1"}); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
