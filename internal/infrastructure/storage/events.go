package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

var _ ports.EventLog = (*Store)(nil)

const defaultEventLimit = 100

// AppendEvent stores one audit entry stamped with the current UTC time.
func (s *Store) AppendEvent(ctx context.Context, category, message string) error {
	query, args, err := s.sb.
		Insert("event_logs").
		Columns("category", "message", "created_at").
		Values(category, message, s.now()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append event %s: %w", category, err)
	}
	return nil
}

// ListEvents returns matching entries newest first. Contains is matched as a
// literal, case-sensitive substring.
func (s *Store) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.EventLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	builder := s.sb.
		Select("id", "category", "message", "created_at").
		From("event_logs").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))
	if len(filter.Categories) > 0 {
		builder = builder.Where(sq.Eq{"category": filter.Categories})
	}
	if filter.Contains != "" {
		builder = builder.Where(sq.Expr(fmt.Sprintf(s.dialect.contains, "message"), filter.Contains))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.EventLogEntry
	for rows.Next() {
		var e domain.EventLogEntry
		if err := rows.Scan(&e.ID, &e.Category, &e.Message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
