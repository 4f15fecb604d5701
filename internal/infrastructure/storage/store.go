package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect captures the few differences between the supported SQL backends.
type Dialect struct {
	Name        string
	driver      string
	placeholder sq.PlaceholderFormat
	serialPK    string
	// contains is a literal, case-sensitive substring test on one column.
	contains string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		driver:      "sqlite",
		placeholder: sq.Question,
		serialPK:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		contains:    "instr(%s, ?) > 0",
	}
	Postgres = Dialect{
		Name:        "postgres",
		driver:      "postgres",
		placeholder: sq.Dollar,
		serialPK:    "BIGSERIAL PRIMARY KEY",
		contains:    "strpos(%s, ?) > 0",
	}
)

// Store persists the client registry, publication ledger, metrics, event log,
// remix topics and stats snapshots. Every call uses a pooled connection for the
// duration of one statement; no transaction outlives a call.
type Store struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

// Open connects to dsn and applies the schema. postgres:// and postgresql://
// DSNs use lib/pq; anything else is treated as a sqlite file path.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dialect, driverDSN := resolveDSN(dsn)

	db, err := sql.Open(dialect.driver, driverDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}

	store := New(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.placeholder),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func resolveDSN(dsn string) (Dialect, string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return Postgres, dsn
	}
	path := strings.TrimPrefix(dsn, "sqlite://")
	path = strings.TrimPrefix(path, "file:")
	return SQLite, fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	pk := s.dialect.serialPK
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id ` + pk + `,
			username TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS client_configs (
			client_id BIGINT PRIMARY KEY REFERENCES clients(id) ON DELETE CASCADE,
			source_kind TEXT NOT NULL DEFAULT 'wordpress',
			source_url TEXT NOT NULL DEFAULT '',
			social_account TEXT NOT NULL DEFAULT '',
			social_secret TEXT NOT NULL DEFAULT '',
			report_to TEXT NOT NULL DEFAULT '',
			remix_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			niche_keywords TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS published_posts (
			id ` + pk + `,
			client_id BIGINT NOT NULL,
			item_id TEXT NOT NULL,
			published_at TIMESTAMP NOT NULL,
			UNIQUE (client_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS news_metrics (
			id ` + pk + `,
			client_id BIGINT NOT NULL,
			item_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			observed_at TIMESTAMP NOT NULL,
			UNIQUE (client_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS event_logs (
			id ` + pk + `,
			category TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS remix_topics (
			id ` + pk + `,
			topic TEXT NOT NULL UNIQUE,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			used_at TIMESTAMP NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stats_snapshots (
			id ` + pk + `,
			client_id BIGINT NOT NULL,
			followers BIGINT NOT NULL DEFAULT 0,
			following BIGINT NOT NULL DEFAULT 0,
			media_count BIGINT NOT NULL DEFAULT 0,
			collected_on TEXT NOT NULL,
			collected_at TIMESTAMP NOT NULL,
			UNIQUE (client_id, collected_on)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_logs_created ON event_logs (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_news_metrics_client ON news_metrics (client_id, observed_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func rowsInserted(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
