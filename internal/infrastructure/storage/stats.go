package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

var _ ports.StatsStore = (*Store)(nil)

// RecordStatsSnapshot keeps the first snapshot of a (client, day) pair.
func (s *Store) RecordStatsSnapshot(ctx context.Context, snap domain.StatsSnapshot) (bool, error) {
	at := snap.CollectedAt
	if at.IsZero() {
		at = s.now()
	}

	query, args, err := s.sb.
		Insert("stats_snapshots").
		Columns("client_id", "followers", "following", "media_count", "collected_on", "collected_at").
		Values(snap.ClientID, snap.Stats.Followers, snap.Stats.Following, snap.Stats.MediaCount,
			snap.CollectedOn, at.UTC()).
		Suffix("ON CONFLICT (client_id, collected_on) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("record stats for client %d: %w", snap.ClientID, err)
	}
	return rowsInserted(res)
}

// StatsForClient lists snapshots in calendar order.
func (s *Store) StatsForClient(ctx context.Context, clientID int64) ([]domain.StatsSnapshot, error) {
	query, args, err := s.sb.
		Select("client_id", "followers", "following", "media_count", "collected_on", "collected_at").
		From("stats_snapshots").
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("collected_on").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stats for client %d: %w", clientID, err)
	}
	defer rows.Close()

	var out []domain.StatsSnapshot
	for rows.Next() {
		var snap domain.StatsSnapshot
		if err := rows.Scan(&snap.ClientID, &snap.Stats.Followers, &snap.Stats.Following,
			&snap.Stats.MediaCount, &snap.CollectedOn, &snap.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}
