package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

const (
	summaryCacheKey = "summary"
	recentErrors    = 20
)

// ErrorCategories are the event categories shown as failures on dashboards.
var ErrorCategories = []string{
	domain.CategoryCritical,
	domain.CategoryPublishError,
	domain.CategoryReportError,
	domain.CategoryStatsError,
	domain.CategoryRemixError,
}

// DashboardSummary is the overview served to the admin dashboard.
type DashboardSummary struct {
	Activity     []domain.ClientActivity
	RecentErrors []domain.EventLogEntry
	GeneratedAt  time.Time
}

// Dashboard serves read-only views over pipeline outputs. The summary is
// cached for ttl.
type Dashboard struct {
	reader ports.DashboardReader
	cache  *cache.Cache
	now    func() time.Time
}

// NewDashboard builds the dashboard reader; ttl <= 0 means 30s.
func NewDashboard(reader ports.DashboardReader, ttl time.Duration) *Dashboard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Dashboard{
		reader: reader,
		cache:  cache.New(ttl, 2*ttl),
		now:    time.Now,
	}
}

// Summary returns per-client post counts and the latest failures.
func (d *Dashboard) Summary(ctx context.Context) (DashboardSummary, error) {
	if x, found := d.cache.Get(summaryCacheKey); found {
		return x.(DashboardSummary), nil
	}

	activity, err := d.reader.PostsPerClient(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("posts per client: %w", err)
	}
	errs, err := d.reader.ListEvents(ctx, domain.EventFilter{Categories: ErrorCategories, Limit: recentErrors})
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("recent errors: %w", err)
	}

	summary := DashboardSummary{Activity: activity, RecentErrors: errs, GeneratedAt: d.now().UTC()}
	d.cache.Set(summaryCacheKey, summary, cache.DefaultExpiration)
	return summary, nil
}

// Events lists the audit trail.
func (d *Dashboard) Events(ctx context.Context, filter domain.EventFilter) ([]domain.EventLogEntry, error) {
	return d.reader.ListEvents(ctx, filter)
}

// Client loads one client. Unknown ids yield ErrNotFound.
func (d *Dashboard) Client(ctx context.Context, id int64) (domain.Client, error) {
	return d.reader.ClientByID(ctx, id)
}

// Metrics lists the scored items recorded for a client.
func (d *Dashboard) Metrics(ctx context.Context, id int64) ([]domain.MetricRecord, error) {
	if _, err := d.reader.ClientByID(ctx, id); err != nil {
		return nil, err
	}
	return d.reader.MetricsForClient(ctx, id)
}

// Publications lists ledger rows for a client, newest first.
func (d *Dashboard) Publications(ctx context.Context, id int64, limit int) ([]domain.PublicationRecord, error) {
	if _, err := d.reader.ClientByID(ctx, id); err != nil {
		return nil, err
	}
	return d.reader.PublicationsForClient(ctx, id, limit)
}

// Stats lists the daily account snapshots of a client.
func (d *Dashboard) Stats(ctx context.Context, id int64) ([]domain.StatsSnapshot, error) {
	if _, err := d.reader.ClientByID(ctx, id); err != nil {
		return nil, err
	}
	return d.reader.StatsForClient(ctx, id)
}
