package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

// RemixQuery is the search query built for one client.
type RemixQuery struct {
	ClientID int64
	Username string
	Query    string
}

// RemixSummary reports the claimed topic and the queries derived from it.
type RemixSummary struct {
	Topic   string
	Claimed bool
	Added   int
	Queries []RemixQuery
	Failed  int
}

// RemixDeps wires the remix task.
type RemixDeps struct {
	Registry ports.ClientRegistry
	Topics   ports.TopicQueue
	Remixer  ports.Remixer
	Trends   ports.TrendSource
	Feeder   ports.TopicFeeder
	Journal  *Journal
	Logger   *slog.Logger
}

// RemixTask consumes one curated topic per firing and fans it out to opted-in clients.
type RemixTask struct {
	registry ports.ClientRegistry
	topics   ports.TopicQueue
	remixer  ports.Remixer
	trends   ports.TrendSource
	feeder   ports.TopicFeeder
	journal  *Journal
	logger   *slog.Logger
}

// NewRemixTask constructs the remix task. Remixer, Trends and Feeder may be nil.
func NewRemixTask(deps RemixDeps) *RemixTask {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	journal := deps.Journal
	if journal == nil {
		journal = NewJournal(nil, logger)
	}
	return &RemixTask{
		registry: deps.Registry,
		topics:   deps.Topics,
		remixer:  deps.Remixer,
		trends:   deps.Trends,
		feeder:   deps.Feeder,
		journal:  journal,
		logger:   logger,
	}
}

// Run claims a topic and builds a query for every remix-enabled client.
func (t *RemixTask) Run(ctx context.Context) (RemixSummary, error) {
	var summary RemixSummary
	summary.Added = t.refreshTopics(ctx)

	topic, ok, err := t.topics.ClaimUnusedTopic(ctx)
	if err != nil {
		t.journal.Record(ctx, domain.CategoryCritical, "Remix task could not claim a topic: %v", err)
		return summary, fmt.Errorf("claim topic: %w", err)
	}
	if !ok {
		t.journal.Record(ctx, domain.CategoryRemixTask, "No unused remix topic left.")
		return summary, nil
	}
	summary.Topic = topic.Topic
	summary.Claimed = true
	t.logger.Info("remix topic claimed", "topic", topic.Topic, "id", topic.ID)

	clients, err := t.registry.ListActiveClients(ctx)
	if err != nil {
		t.journal.Record(ctx, domain.CategoryCritical, "Remix task could not load clients: %v", err)
		return summary, fmt.Errorf("list active clients: %w", err)
	}

	var enabled []domain.Client
	for _, client := range clients {
		if client.RemixEnabled {
			enabled = append(enabled, client)
		}
	}
	if len(enabled) == 0 {
		t.journal.Record(ctx, domain.CategoryRemixTask, "No client has the remix task enabled.")
		return summary, nil
	}

	for _, client := range enabled {
		query := BuildRemixQuery(topic.Topic, client.NicheKeywords)
		summary.Queries = append(summary.Queries, RemixQuery{ClientID: client.ID, Username: client.Username, Query: query})

		if t.remixer == nil {
			t.journal.Record(ctx, domain.CategoryRemixTask, "Remix query '%s' prepared for %s.", query, client.Username)
			continue
		}

		err := guard(func() error {
			return t.remixer.Remix(ctx, client, query)
		})
		if err != nil {
			summary.Failed++
			t.journal.Record(ctx, domain.CategoryRemixError, "Remix about '%s' failed for %s: %v", topic.Topic, client.Username, err)
			continue
		}
		t.journal.Record(ctx, domain.CategoryRemixTask, "Remix about '%s' done for %s.", topic.Topic, client.Username)
	}

	return summary, nil
}

// refreshTopics feeds trending topics into the queue. Failures only cost the
// refresh; the curated queue is still consumed.
func (t *RemixTask) refreshTopics(ctx context.Context) int {
	if t.trends == nil || t.feeder == nil {
		return 0
	}
	var added int
	err := guard(func() error {
		topics, err := t.trends.TrendingTopics(ctx)
		if err != nil {
			return err
		}
		added, err = t.feeder.AddRemixTopics(ctx, topics)
		return err
	})
	if err != nil {
		t.journal.Record(ctx, domain.CategoryRemixError, "Failed to refresh trending topics: %v", err)
		return 0
	}
	if added > 0 {
		t.journal.Record(ctx, domain.CategoryRemixTask, "Added %d trending topics to the remix queue.", added)
	}
	return added
}

// BuildRemixQuery combines the topic with a client's niche keywords.
func BuildRemixQuery(topic, keywords string) string {
	return strings.Join(strings.Fields(topic+" "+keywords), " ")
}
