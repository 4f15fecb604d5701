package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// RecipientPrefix marks report destinations handled by Telegram.
	RecipientPrefix = "telegram:"
)

// Notifier delivers reports to Telegram chats via the bot API.
type Notifier struct {
	botToken string
	apiBase  string
	client   *http.Client
}

var _ ports.Reporter = (*Notifier)(nil)

// NewNotifier registers the bot token; apiBase defaults to the public Bot API.
func NewNotifier(botToken, apiBase string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		botToken: botToken,
		apiBase:  strings.TrimRight(apiBase, "/"),
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// ChatID extracts the chat identifier from a "telegram:<chat_id>" recipient.
func ChatID(recipient string) (string, bool) {
	if !strings.HasPrefix(recipient, RecipientPrefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.TrimPrefix(recipient, RecipientPrefix))
	return id, id != ""
}

// Send posts the report subject and body as one plain-text message.
func (n *Notifier) Send(ctx context.Context, report domain.Report) error {
	chatID, ok := ChatID(report.Recipient)
	if !ok {
		return fmt.Errorf("recipient %q is not a telegram chat", report.Recipient)
	}
	if n.botToken == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", report.Subject+"\n\n"+report.Body)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
