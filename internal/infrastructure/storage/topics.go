package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

var (
	_ ports.TopicQueue  = (*Store)(nil)
	_ ports.TopicFeeder = (*Store)(nil)
)

const claimAttempts = 5

// AddRemixTopics inserts new topics and returns how many were added.
// Blank and already known topics are ignored.
func (s *Store) AddRemixTopics(ctx context.Context, topics []string) (int, error) {
	added := 0
	for _, raw := range topics {
		topic := strings.TrimSpace(raw)
		if topic == "" {
			continue
		}
		query, args, err := s.sb.
			Insert("remix_topics").
			Columns("topic", "used", "created_at").
			Values(topic, false, s.now()).
			Suffix("ON CONFLICT (topic) DO NOTHING").
			ToSql()
		if err != nil {
			return added, fmt.Errorf("build query: %w", err)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return added, fmt.Errorf("add topic %q: %w", topic, err)
		}
		ok, err := rowsInserted(res)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// ClaimUnusedTopic picks a random unused topic and marks it used in a single
// conditional UPDATE, so concurrent callers never receive the same topic.
// It returns false once every topic has been handed out.
func (s *Store) ClaimUnusedTopic(ctx context.Context) (domain.RemixTopic, bool, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		query, args, err := s.sb.
			Update("remix_topics").
			Set("used", true).
			Set("used_at", s.now()).
			Where(sq.Expr("id = (SELECT id FROM remix_topics WHERE used = ? ORDER BY RANDOM() LIMIT 1)", false)).
			Where(sq.Eq{"used": false}).
			Suffix("RETURNING id, topic").
			ToSql()
		if err != nil {
			return domain.RemixTopic{}, false, fmt.Errorf("build query: %w", err)
		}

		var topic domain.RemixTopic
		err = s.db.QueryRowContext(ctx, query, args...).Scan(&topic.ID, &topic.Topic)
		if err == nil {
			topic.Used = true
			return topic, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.RemixTopic{}, false, fmt.Errorf("claim topic: %w", err)
		}

		// Either the queue is empty or another caller won the race for the
		// picked row.
		remaining, err := s.unusedTopics(ctx)
		if err != nil {
			return domain.RemixTopic{}, false, err
		}
		if remaining == 0 {
			return domain.RemixTopic{}, false, nil
		}
	}
	return domain.RemixTopic{}, false, nil
}

func (s *Store) unusedTopics(ctx context.Context) (int64, error) {
	query, args, err := s.sb.
		Select("COUNT(*)").
		From("remix_topics").
		Where(sq.Eq{"used": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unused topics: %w", err)
	}
	return n, nil
}
