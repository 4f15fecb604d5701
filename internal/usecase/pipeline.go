package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

const (
	defaultFetchLimit = 10
	defaultTopK       = 3
)

// ClientOutcome classifies how one client's run ended.
type ClientOutcome string

const (
	OutcomeCompleted  ClientOutcome = "completed"
	OutcomeNoItems    ClientOutcome = "no_items"
	OutcomeAuthFailed ClientOutcome = "auth_failed"
	OutcomeFailed     ClientOutcome = "failed"
	OutcomeCancelled  ClientOutcome = "cancelled"
)

// ClientResult is what the per-client step reports back to the run loop.
type ClientResult struct {
	ClientID  int64
	Username  string
	Outcome   ClientOutcome
	Published int
	Failed    int
	Skipped   int
	Err       error
}

// RunSummary aggregates one firing of the publish task.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []ClientResult
	Err        error
}

// PipelineDeps wires all driven adapters into the publish pipeline.
type PipelineDeps struct {
	Registry   ports.ClientRegistry
	Source     ports.ContentSource
	Ledger     ports.PublicationLedger
	Metrics    ports.MetricStore
	Publisher  ports.Publisher
	Captions   *Captioner
	Journal    *Journal
	Pacer      *Pacer
	Sleep      ports.Sleeper
	Clock      func() time.Time
	FetchLimit int
	TopK       int
	Logger     *slog.Logger
}

// Pipeline runs fetch → score → rank → dedupe → publish-with-pacing → record
// for every active client, one client at a time.
type Pipeline struct {
	registry   ports.ClientRegistry
	source     ports.ContentSource
	ledger     ports.PublicationLedger
	metrics    ports.MetricStore
	publisher  ports.Publisher
	captions   *Captioner
	journal    *Journal
	pacer      *Pacer
	sleep      ports.Sleeper
	clock      func() time.Time
	fetchLimit int
	topK       int
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		registry:   deps.Registry,
		source:     deps.Source,
		ledger:     deps.Ledger,
		metrics:    deps.Metrics,
		publisher:  deps.Publisher,
		captions:   deps.Captions,
		journal:    deps.Journal,
		pacer:      deps.Pacer,
		sleep:      deps.Sleep,
		clock:      deps.Clock,
		fetchLimit: deps.FetchLimit,
		topK:       deps.TopK,
		logger:     deps.Logger,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.journal == nil {
		p.journal = NewJournal(nil, p.logger)
	}
	if p.pacer == nil {
		p.pacer = NewPacer(5*time.Minute, 15*time.Minute, time.Minute, nil)
	}
	if p.sleep == nil {
		p.sleep = SleepContext
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.fetchLimit <= 0 {
		p.fetchLimit = defaultFetchLimit
	}
	if p.topK <= 0 {
		p.topK = defaultTopK
	}
	return p
}

// Run processes every active client. A failing client never stops the others.
func (p *Pipeline) Run(ctx context.Context) (summary RunSummary) {
	summary = RunSummary{StartedAt: p.clock()}
	defer func() { summary.FinishedAt = p.clock() }()

	clients, err := p.registry.ListActiveClients(ctx)
	if err != nil {
		summary.Err = fmt.Errorf("list active clients: %w", err)
		p.journal.Record(ctx, domain.CategoryCritical, "Publish task could not load clients: %v", err)
		return summary
	}
	if len(clients) == 0 {
		p.journal.Record(ctx, domain.CategoryPublishTask, "No active clients found.")
		return summary
	}

	for _, client := range clients {
		if ctx.Err() != nil {
			summary.Err = ctx.Err()
			break
		}
		result := p.ProcessClient(ctx, client)
		if result.Outcome == OutcomeFailed {
			p.journal.Record(ctx, domain.CategoryCritical, "Error processing client %s: %v", client.Username, result.Err)
		}
		p.logger.Info("client processed",
			"client", client.Username,
			"outcome", result.Outcome,
			"published", result.Published,
			"failed", result.Failed,
			"skipped", result.Skipped)
		summary.Results = append(summary.Results, result)
	}

	return summary
}

// ProcessClient runs the full publish sequence for a single client. Errors and
// panics are folded into the returned result.
func (p *Pipeline) ProcessClient(ctx context.Context, client domain.Client) (result ClientResult) {
	result = ClientResult{ClientID: client.ID, Username: client.Username, Outcome: OutcomeCompleted}
	defer func() {
		if r := recover(); r != nil {
			result.Outcome = OutcomeFailed
			result.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	p.journal.Record(ctx, domain.CategoryClientRun, "Starting processing for client %s.", client.Username)

	items := p.source.FetchRecent(ctx, client.Source, p.fetchLimit)
	if len(items) == 0 {
		p.journal.Record(ctx, domain.CategorySourceFetch, "No items found for %s.", client.Username)
		result.Outcome = OutcomeNoItems
		return result
	}

	now := p.clock()
	top := TopK(Rank(items, now), p.topK)
	for _, candidate := range top {
		p.logger.Debug("selected item", "client", client.Username, "item", candidate.Item.ID, "title", candidate.Item.Title, "score", candidate.Score)
		err := p.metrics.RecordMetric(ctx, domain.MetricRecord{
			ClientID:   client.ID,
			ItemID:     candidate.Item.ID,
			Title:      candidate.Item.Title,
			Link:       candidate.Item.Link,
			Score:      candidate.Score,
			ObservedAt: now,
		})
		if err != nil {
			return failed(result, fmt.Errorf("record metric %s: %w", candidate.Item.ID, err))
		}
	}

	session, err := p.publisher.Authenticate(ctx, client.Social)
	if err != nil || session == nil {
		if err == nil {
			err = domain.ErrAuthentication
		}
		p.logger.Warn("social login failed", "client", client.Username, "error", err)
		p.journal.Record(ctx, domain.CategoryPublishError, "Social login failed for %s.", client.Username)
		result.Outcome = OutcomeAuthFailed
		result.Err = err
		return result
	}

	// The pause chosen after an attempt is only slept once another publish
	// is actually about to happen.
	var (
		pending time.Duration
		paced   bool
	)
	for _, candidate := range top {
		published, err := p.ledger.PublishedIDs(ctx, client.ID)
		if err != nil {
			return failed(result, fmt.Errorf("load published ids: %w", err))
		}
		if published[candidate.Item.ID] {
			result.Skipped++
			continue
		}

		if paced {
			if err := p.sleep(ctx, pending); err != nil {
				result.Outcome = OutcomeCancelled
				result.Err = err
				return result
			}
		}

		var delay time.Duration
		post := domain.Post{Item: candidate.Item, Caption: p.captions.Compose(ctx, candidate.Item)}
		if err := p.publisher.Publish(ctx, session, post); err != nil {
			p.logger.Warn("publish failed", "client", client.Username, "item", candidate.Item.ID, "error", err)
			p.journal.Record(ctx, domain.CategoryPublishError, "Failed to publish '%s' for %s.", candidate.Item.Title, client.Username)
			result.Failed++
			delay = p.pacer.AfterFailure()
		} else {
			inserted, err := p.ledger.RecordPublication(ctx, domain.PublicationRecord{
				ClientID:    client.ID,
				ItemID:      candidate.Item.ID,
				PublishedAt: p.clock(),
			})
			if err != nil {
				return failed(result, fmt.Errorf("record publication %s: %w", candidate.Item.ID, err))
			}
			if !inserted {
				p.logger.Warn("publication already recorded by a concurrent run", "client", client.Username, "item", candidate.Item.ID)
			}
			p.journal.Record(ctx, domain.CategoryPublishSuccess, "Published '%s' for %s.", candidate.Item.Title, client.Username)
			result.Published++
			delay = p.pacer.AfterSuccess()
		}
		pending, paced = delay, true
	}

	return result
}

func failed(result ClientResult, err error) ClientResult {
	result.Outcome = OutcomeFailed
	result.Err = err
	return result
}
