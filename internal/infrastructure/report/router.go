package report

import (
	"context"
	"fmt"
	"strings"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/infrastructure/telegram"
	"NewsPublisher/internal/ports"
)

// Router picks the delivery channel from the recipient: "telegram:<chat_id>"
// goes to the chat reporter, anything else is treated as an email address.
type Router struct {
	email ports.Reporter
	chat  ports.Reporter
}

var _ ports.Reporter = (*Router)(nil)

// NewRouter accepts nil for a channel that is not configured.
func NewRouter(email, chat ports.Reporter) *Router {
	return &Router{email: email, chat: chat}
}

// Send delivers rep through the channel selected by its recipient.
func (r *Router) Send(ctx context.Context, rep domain.Report) error {
	if strings.HasPrefix(rep.Recipient, telegram.RecipientPrefix) {
		if r.chat == nil {
			return fmt.Errorf("telegram delivery is not configured for %s", rep.Recipient)
		}
		return r.chat.Send(ctx, rep)
	}
	if r.email == nil {
		return fmt.Errorf("email delivery is not configured for %s", rep.Recipient)
	}
	return r.email.Send(ctx, rep)
}
