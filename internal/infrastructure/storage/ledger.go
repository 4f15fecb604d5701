package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

var (
	_ ports.PublicationLedger = (*Store)(nil)
	_ ports.MetricStore       = (*Store)(nil)
)

// PublishedIDs returns the set of item ids already published for a client.
func (s *Store) PublishedIDs(ctx context.Context, clientID int64) (map[string]bool, error) {
	query, args, err := s.sb.
		Select("item_id").
		From("published_posts").
		Where(sq.Eq{"client_id": clientID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("published ids for client %d: %w", clientID, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item ids: %w", err)
	}
	return ids, nil
}

// RecordPublication is insert-if-absent on (client_id, item_id).
func (s *Store) RecordPublication(ctx context.Context, rec domain.PublicationRecord) (bool, error) {
	at := rec.PublishedAt
	if at.IsZero() {
		at = s.now()
	}

	query, args, err := s.sb.
		Insert("published_posts").
		Columns("client_id", "item_id", "published_at").
		Values(rec.ClientID, rec.ItemID, at.UTC()).
		Suffix("ON CONFLICT (client_id, item_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("record publication %d/%s: %w", rec.ClientID, rec.ItemID, err)
	}
	return rowsInserted(res)
}

// PublicationsForClient lists ledger rows newest first.
func (s *Store) PublicationsForClient(ctx context.Context, clientID int64, limit int) ([]domain.PublicationRecord, error) {
	builder := s.sb.
		Select("client_id", "item_id", "published_at").
		From("published_posts").
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("published_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("publications for client %d: %w", clientID, err)
	}
	defer rows.Close()

	var out []domain.PublicationRecord
	for rows.Next() {
		var rec domain.PublicationRecord
		if err := rows.Scan(&rec.ClientID, &rec.ItemID, &rec.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publications: %w", err)
	}
	return out, nil
}

// RecordMetric stores the first observation of an item for a client; later
// observations of the same pair are ignored.
func (s *Store) RecordMetric(ctx context.Context, rec domain.MetricRecord) error {
	at := rec.ObservedAt
	if at.IsZero() {
		at = s.now()
	}

	query, args, err := s.sb.
		Insert("news_metrics").
		Columns("client_id", "item_id", "title", "link", "score", "observed_at").
		Values(rec.ClientID, rec.ItemID, rec.Title, rec.Link, rec.Score, at.UTC()).
		Suffix("ON CONFLICT (client_id, item_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record metric %d/%s: %w", rec.ClientID, rec.ItemID, err)
	}
	return nil
}

// MetricsForClient lists recorded metrics, newest observation first.
func (s *Store) MetricsForClient(ctx context.Context, clientID int64) ([]domain.MetricRecord, error) {
	query, args, err := s.sb.
		Select("client_id", "item_id", "title", "link", "score", "observed_at").
		From("news_metrics").
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("observed_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("metrics for client %d: %w", clientID, err)
	}
	defer rows.Close()

	var out []domain.MetricRecord
	for rows.Next() {
		var m domain.MetricRecord
		if err := rows.Scan(&m.ClientID, &m.ItemID, &m.Title, &m.Link, &m.Score, &m.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return out, nil
}
