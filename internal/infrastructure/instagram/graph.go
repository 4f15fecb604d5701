package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

const DefaultBaseURL = "https://graph.facebook.com/v21.0"

// Config controls the Graph API client.
type Config struct {
	BaseURL         string
	DefaultImageURL string
	Timeout         time.Duration
}

// GraphClient publishes photos and reads account counters through the
// Instagram Graph API. SocialCredentials.Account is the business account id
// and SocialCredentials.Secret its access token.
type GraphClient struct {
	baseURL      string
	defaultImage string
	client       *http.Client
	logger       *slog.Logger
}

var (
	_ ports.Publisher      = (*GraphClient)(nil)
	_ ports.StatsCollector = (*GraphClient)(nil)
)

// NewGraphClient builds a Graph API client. A nil client gets one with cfg.Timeout.
func NewGraphClient(cfg Config, client *http.Client, logger *slog.Logger) *GraphClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GraphClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultImage: cfg.DefaultImageURL,
		client:       client,
		logger:       logger.With("component", "instagram"),
	}
}

type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Authenticate validates the token by reading the account profile.
func (g *GraphClient) Authenticate(ctx context.Context, creds domain.SocialCredentials) (*domain.Session, error) {
	if creds.Account == "" || creds.Secret == "" {
		return nil, fmt.Errorf("missing account or token: %w", domain.ErrAuthentication)
	}

	var acc accountResponse
	params := url.Values{"fields": {"id,username"}}
	if err := g.get(ctx, creds.Account, creds.Secret, params, &acc); err != nil {
		return nil, fmt.Errorf("account %s: %w: %w", creds.Account, domain.ErrAuthentication, err)
	}
	if acc.ID == "" {
		return nil, fmt.Errorf("account %s: empty profile: %w", creds.Account, domain.ErrAuthentication)
	}

	g.logger.Debug("authenticated", "account", acc.ID, "username", acc.Username)
	return &domain.Session{AccountID: acc.ID, Username: acc.Username, Token: creds.Secret}, nil
}

type idResponse struct {
	ID string `json:"id"`
}

// Publish creates a media container for the item image and publishes it.
func (g *GraphClient) Publish(ctx context.Context, session *domain.Session, post domain.Post) error {
	if session == nil {
		return fmt.Errorf("no session: %w", domain.ErrPublish)
	}
	image := post.Item.ImageURL
	if image == "" {
		image = g.defaultImage
	}
	if image == "" {
		return fmt.Errorf("item %s has no image: %w", post.Item.ID, domain.ErrPublish)
	}

	var container idResponse
	form := url.Values{"image_url": {image}, "caption": {post.Caption}}
	if err := g.post(ctx, session.AccountID+"/media", session.Token, form, &container); err != nil {
		return fmt.Errorf("create container for %s: %w: %w", post.Item.ID, domain.ErrPublish, err)
	}

	var published idResponse
	form = url.Values{"creation_id": {container.ID}}
	if err := g.post(ctx, session.AccountID+"/media_publish", session.Token, form, &published); err != nil {
		return fmt.Errorf("publish container %s: %w: %w", container.ID, domain.ErrPublish, err)
	}

	g.logger.Info("media published", "account", session.Username, "item", post.Item.ID, "media", published.ID)
	return nil
}

type statsResponse struct {
	Followers  int64 `json:"followers_count"`
	Follows    int64 `json:"follows_count"`
	MediaCount int64 `json:"media_count"`
}

// FetchStats authenticates and reads the account counters.
func (g *GraphClient) FetchStats(ctx context.Context, creds domain.SocialCredentials) (domain.AccountStats, error) {
	session, err := g.Authenticate(ctx, creds)
	if err != nil {
		return domain.AccountStats{}, err
	}

	var stats statsResponse
	params := url.Values{"fields": {"followers_count,follows_count,media_count"}}
	if err := g.get(ctx, session.AccountID, session.Token, params, &stats); err != nil {
		return domain.AccountStats{}, fmt.Errorf("stats for %s: %w", session.AccountID, err)
	}
	return domain.AccountStats{
		Followers:  stats.Followers,
		Following:  stats.Follows,
		MediaCount: stats.MediaCount,
	}, nil
}

func (g *GraphClient) get(ctx context.Context, path, token string, params url.Values, out any) error {
	params.Set("access_token", token)
	endpoint := fmt.Sprintf("%s/%s?%s", g.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	return g.do(req, out)
}

func (g *GraphClient) post(ctx context.Context, path, token string, form url.Values, out any) error {
	form.Set("access_token", token)
	endpoint := fmt.Sprintf("%s/%s", g.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, out)
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *GraphClient) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			return fmt.Errorf("graph api %s: %s (code %d)", resp.Status, ge.Error.Message, ge.Error.Code)
		}
		return fmt.Errorf("graph api %s", resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

