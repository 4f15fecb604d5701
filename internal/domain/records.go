package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication failed")
	ErrPublish        = errors.New("publish failed")
)

// PublicationRecord is the idempotency key of the pipeline: one row per (client, item).
type PublicationRecord struct {
	ClientID    int64
	ItemID      string
	PublishedAt time.Time
}

// MetricRecord snapshots a scoring decision regardless of publication outcome.
type MetricRecord struct {
	ClientID   int64
	ItemID     string
	Title      string
	Link       string
	Score      float64
	ObservedAt time.Time
}

// EventLogEntry is an append-only audit line.
type EventLogEntry struct {
	ID        int64
	Category  string
	Message   string
	Timestamp time.Time
}

// RemixTopic is a single-use curated topic.
type RemixTopic struct {
	ID    int64
	Topic string
	Used  bool
}

// StatsSnapshot holds one daily collection of account counters.
type StatsSnapshot struct {
	ClientID    int64
	Stats       AccountStats
	CollectedOn string
	CollectedAt time.Time
}

// ClientActivity aggregates published posts per client for dashboards.
type ClientActivity struct {
	ClientID  int64
	Username  string
	PostCount int64
}

// Event categories.
const (
	CategoryAgentStart      = "agent_start"
	CategoryPublishTask     = "publish_task"
	CategoryClientRun       = "client_processing"
	CategorySourceFetch     = "source_fetch"
	CategoryPublishSuccess  = "publish_success"
	CategoryPublishError    = "publish_error"
	CategoryCritical        = "critical_error"
	CategoryEmailReport     = "email_report"
	CategoryReportError     = "report_error"
	CategoryStatsCollection = "stats_collection"
	CategoryStatsError      = "stats_error"
	CategoryRemixTask       = "remix_task"
	CategoryRemixError      = "remix_error"
)

// DayLayout formats the calendar day used to dedupe stats snapshots.
const DayLayout = "2006-01-02"

// EventFilter narrows event log queries; empty fields match everything.
type EventFilter struct {
	Categories []string
	Contains   string
	Limit      int
}
