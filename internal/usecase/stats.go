package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// StatsSummary counts what one firing of the stats task did.
type StatsSummary struct {
	Collected int
	Duplicate int
	Failed    int
}

// StatsDeps wires the stats task.
type StatsDeps struct {
	Registry  ports.ClientRegistry
	Collector ports.StatsCollector
	Store     ports.StatsStore
	Journal   *Journal
	Location  *time.Location
	Clock     func() time.Time
	Logger    *slog.Logger
}

// StatsTask snapshots account counters once per client and day.
type StatsTask struct {
	registry  ports.ClientRegistry
	collector ports.StatsCollector
	store     ports.StatsStore
	journal   *Journal
	location  *time.Location
	clock     func() time.Time
	logger    *slog.Logger
}

// NewStatsTask constructs the stats task.
func NewStatsTask(deps StatsDeps) *StatsTask {
	t := &StatsTask{
		registry:  deps.Registry,
		collector: deps.Collector,
		store:     deps.Store,
		journal:   deps.Journal,
		location:  deps.Location,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	if t.journal == nil {
		t.journal = NewJournal(nil, t.logger)
	}
	if t.location == nil {
		t.location = time.UTC
	}
	if t.clock == nil {
		t.clock = time.Now
	}
	return t
}

// Run collects stats for every active client.
func (t *StatsTask) Run(ctx context.Context) (StatsSummary, error) {
	var summary StatsSummary

	clients, err := t.registry.ListActiveClients(ctx)
	if err != nil {
		t.journal.Record(ctx, domain.CategoryCritical, "Stats task could not load clients: %v", err)
		return summary, fmt.Errorf("list active clients: %w", err)
	}

	for _, client := range clients {
		var inserted bool
		err := guard(func() error {
			stats, err := t.collector.FetchStats(ctx, client.Social)
			if err != nil {
				return fmt.Errorf("fetch stats: %w", err)
			}
			now := t.clock()
			inserted, err = t.store.RecordStatsSnapshot(ctx, domain.StatsSnapshot{
				ClientID:    client.ID,
				Stats:       stats,
				CollectedOn: now.In(t.location).Format(domain.DayLayout),
				CollectedAt: now.UTC(),
			})
			if err != nil {
				return fmt.Errorf("store snapshot: %w", err)
			}
			return nil
		})

		switch {
		case err != nil:
			summary.Failed++
			t.logger.Warn("stats collection failed", "client", client.Username, "error", err)
			t.journal.Record(ctx, domain.CategoryStatsError, "Failed to collect stats for %s.", client.Username)
		case !inserted:
			summary.Duplicate++
			t.logger.Info("stats already collected today", "client", client.Username)
		default:
			summary.Collected++
			t.journal.Record(ctx, domain.CategoryStatsCollection, "Collected stats for %s.", client.Username)
		}
	}

	return summary, nil
}
