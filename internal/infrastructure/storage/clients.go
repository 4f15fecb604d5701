package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

var (
	_ ports.ClientRegistry  = (*Store)(nil)
	_ ports.DashboardReader = (*Store)(nil)
)

var clientColumns = []string{
	"c.id", "c.username", "c.status",
	"cc.source_kind", "cc.source_url",
	"cc.social_account", "cc.social_secret",
	"cc.report_to", "cc.remix_enabled", "cc.niche_keywords",
}

// ListActiveClients returns active clients that have a configuration row.
// A client without configuration is never scheduled.
func (s *Store) ListActiveClients(ctx context.Context) ([]domain.Client, error) {
	query, args, err := s.sb.
		Select(clientColumns...).
		From("clients c").
		Join("client_configs cc ON cc.client_id = c.id").
		Where(sq.Eq{"c.status": string(domain.ClientActive)}).
		OrderBy("c.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

// ClientByID loads one configured client regardless of status.
func (s *Store) ClientByID(ctx context.Context, id int64) (domain.Client, error) {
	query, args, err := s.sb.
		Select(clientColumns...).
		From("clients c").
		Join("client_configs cc ON cc.client_id = c.id").
		Where(sq.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return domain.Client{}, fmt.Errorf("build query: %w", err)
	}

	c, err := scanClient(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, fmt.Errorf("client %d: %w", id, domain.ErrNotFound)
	}
	return c, err
}

// UpsertClient creates or updates a client and its configuration, keyed by
// username, and returns the client id.
func (s *Store) UpsertClient(ctx context.Context, c domain.Client) (int64, error) {
	status := c.Status
	if status == "" {
		status = domain.ClientActive
	}
	kind := c.Source.Kind
	if kind == "" {
		kind = domain.SourceWordPress
	}

	query, args, err := s.sb.
		Insert("clients").
		Columns("username", "status", "created_at").
		Values(c.Username, string(status), s.now()).
		Suffix("ON CONFLICT (username) DO UPDATE SET status = excluded.status RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert client %s: %w", c.Username, err)
	}

	query, args, err = s.sb.
		Insert("client_configs").
		Columns("client_id", "source_kind", "source_url", "social_account", "social_secret",
			"report_to", "remix_enabled", "niche_keywords").
		Values(id, kind, c.Source.Endpoint, c.Social.Account, c.Social.Secret,
			c.ReportTo, c.RemixEnabled, c.NicheKeywords).
		Suffix(`ON CONFLICT (client_id) DO UPDATE SET
			source_kind = excluded.source_kind,
			source_url = excluded.source_url,
			social_account = excluded.social_account,
			social_secret = excluded.social_secret,
			report_to = excluded.report_to,
			remix_enabled = excluded.remix_enabled,
			niche_keywords = excluded.niche_keywords`).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("upsert config for %s: %w", c.Username, err)
	}
	return id, nil
}

// SetClientStatus activates or deactivates a client without touching its history.
func (s *Store) SetClientStatus(ctx context.Context, id int64, status domain.ClientStatus) error {
	query, args, err := s.sb.
		Update("clients").
		Set("status", string(status)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set status of client %d: %w", id, err)
	}
	changed, err := rowsInserted(res)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("client %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// PostsPerClient counts ledger rows per client, including clients with none.
func (s *Store) PostsPerClient(ctx context.Context) ([]domain.ClientActivity, error) {
	query, args, err := s.sb.
		Select("c.id", "c.username", "COUNT(p.id)").
		From("clients c").
		LeftJoin("published_posts p ON p.client_id = c.id").
		GroupBy("c.id", "c.username").
		OrderBy("c.username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("posts per client: %w", err)
	}
	defer rows.Close()

	var out []domain.ClientActivity
	for rows.Next() {
		var a domain.ClientActivity
		if err := rows.Scan(&a.ClientID, &a.Username, &a.PostCount); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c      domain.Client
		status string
	)
	err := row.Scan(
		&c.ID, &c.Username, &status,
		&c.Source.Kind, &c.Source.Endpoint,
		&c.Social.Account, &c.Social.Secret,
		&c.ReportTo, &c.RemixEnabled, &c.NicheKeywords,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, err
	}
	if err != nil {
		return domain.Client{}, fmt.Errorf("scan client: %w", err)
	}
	c.Status = domain.ClientStatus(status)
	return c, nil
}
