package ports

import (
	"context"
	"time"

	"NewsPublisher/internal/domain"
)

// ContentSource pulls recent items for one client. It soft-fails: errors are
// logged by the adapter and surface as an empty slice.
type ContentSource interface {
	FetchRecent(ctx context.Context, source domain.Source, limit int) []domain.ContentItem
}

// Publisher authenticates against the social network and posts items.
type Publisher interface {
	Authenticate(ctx context.Context, creds domain.SocialCredentials) (*domain.Session, error)
	Publish(ctx context.Context, session *domain.Session, post domain.Post) error
}

// StatsCollector authenticates and reads account counters in one call.
type StatsCollector interface {
	FetchStats(ctx context.Context, creds domain.SocialCredentials) (domain.AccountStats, error)
}

// Reporter delivers a rendered report to its recipient. Never retried.
type Reporter interface {
	Send(ctx context.Context, report domain.Report) error
}

// CaptionWriter turns an item into post copy.
type CaptionWriter interface {
	Caption(ctx context.Context, item domain.ContentItem) (string, error)
}

// Remixer is the downstream action of the remix task.
type Remixer interface {
	Remix(ctx context.Context, client domain.Client, query string) error
}

// TrendSource lists currently trending topics.
type TrendSource interface {
	TrendingTopics(ctx context.Context) ([]string, error)
}

// ClientRegistry is the read model over active, configured clients.
type ClientRegistry interface {
	ListActiveClients(ctx context.Context) ([]domain.Client, error)
}

// PublicationLedger records which (client, item) pairs were published.
type PublicationLedger interface {
	PublishedIDs(ctx context.Context, clientID int64) (map[string]bool, error)
	// RecordPublication inserts the pair if absent and reports whether a row was written.
	RecordPublication(ctx context.Context, rec domain.PublicationRecord) (bool, error)
}

// MetricStore persists scoring snapshots.
type MetricStore interface {
	RecordMetric(ctx context.Context, rec domain.MetricRecord) error
	MetricsForClient(ctx context.Context, clientID int64) ([]domain.MetricRecord, error)
}

// EventLog is the append-only audit trail.
type EventLog interface {
	AppendEvent(ctx context.Context, category, message string) error
}

// TopicQueue hands out remix topics exactly once.
type TopicQueue interface {
	ClaimUnusedTopic(ctx context.Context) (domain.RemixTopic, bool, error)
}

// TopicFeeder adds remix topics, ignoring ones already known.
type TopicFeeder interface {
	AddRemixTopics(ctx context.Context, topics []string) (int, error)
}

// StatsStore persists daily account snapshots, at most one per client and day.
type StatsStore interface {
	RecordStatsSnapshot(ctx context.Context, snap domain.StatsSnapshot) (bool, error)
}

// DashboardReader is the read side consumed by the dashboard API.
type DashboardReader interface {
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.EventLogEntry, error)
	ClientByID(ctx context.Context, id int64) (domain.Client, error)
	MetricsForClient(ctx context.Context, clientID int64) ([]domain.MetricRecord, error)
	PublicationsForClient(ctx context.Context, clientID int64, limit int) ([]domain.PublicationRecord, error)
	StatsForClient(ctx context.Context, clientID int64) ([]domain.StatsSnapshot, error)
	PostsPerClient(ctx context.Context) ([]domain.ClientActivity, error)
}

// Scheduler fires registered jobs at daily wall-clock times.
type Scheduler interface {
	Register(name string, times []string, job func(ctx context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error
