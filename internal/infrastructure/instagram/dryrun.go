package instagram

import (
	"context"
	"fmt"
	"log/slog"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// DryRunPublisher accepts every login and post without calling the network.
type DryRunPublisher struct {
	logger *slog.Logger
}

var _ ports.Publisher = (*DryRunPublisher)(nil)

// NewDryRunPublisher returns a publisher that only logs what it would post.
func NewDryRunPublisher(logger *slog.Logger) *DryRunPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DryRunPublisher{logger: logger.With("component", "instagram-dry-run")}
}

// Authenticate accepts any credentials that name an account.
func (d *DryRunPublisher) Authenticate(ctx context.Context, creds domain.SocialCredentials) (*domain.Session, error) {
	if creds.Account == "" {
		return nil, fmt.Errorf("missing account: %w", domain.ErrAuthentication)
	}
	return &domain.Session{AccountID: creds.Account, Username: creds.Account}, nil
}

// Publish logs the post and reports success.
func (d *DryRunPublisher) Publish(ctx context.Context, session *domain.Session, post domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("simulated post", "account", session.Username, "item", post.Item.ID, "title", post.Item.Title)
	return nil
}
