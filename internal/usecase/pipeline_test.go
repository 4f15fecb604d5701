package usecase

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"NewsPublisher/internal/domain"
)

const (
	pauseMin = 5 * time.Minute
	pauseMax = 15 * time.Minute
	cooldown = 60 * time.Second
)

type pipelineFixture struct {
	registry  *fakeRegistry
	source    *fakeSource
	ledger    *fakeLedger
	metrics   *fakeMetrics
	publisher *fakePublisher
	events    *fakeEvents
	sleeper   *sleepRecorder
}

func newFixture(clients ...domain.Client) *pipelineFixture {
	return &pipelineFixture{
		registry:  &fakeRegistry{clients: clients},
		source:    &fakeSource{items: map[string][]domain.ContentItem{}, panicOn: map[string]bool{}},
		ledger:    newFakeLedger(),
		metrics:   &fakeMetrics{},
		publisher: &fakePublisher{authFail: map[string]bool{}, failItems: map[string]bool{}},
		events:    &fakeEvents{},
		sleeper:   &sleepRecorder{},
	}
}

func (f *pipelineFixture) pipeline() *Pipeline {
	return NewPipeline(PipelineDeps{
		Registry:   f.registry,
		Source:     f.source,
		Ledger:     f.ledger,
		Metrics:    f.metrics,
		Publisher:  f.publisher,
		Journal:    NewJournal(f.events, nil),
		Pacer:      NewPacer(pauseMin, pauseMax, cooldown, rand.New(rand.NewSource(7))),
		Sleep:      f.sleeper.sleep,
		Clock:      fixedClock,
		FetchLimit: 10,
		TopK:       3,
	})
}

func testClient(id int64, name string) domain.Client {
	return domain.Client{
		ID:       id,
		Username: name,
		Status:   domain.ClientActive,
		Source:   domain.Source{Kind: domain.SourceWordPress, Endpoint: name},
		Social:   domain.SocialCredentials{Account: name, Secret: "secret"},
	}
}

func feed(ids ...string) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(ids))
	for i, id := range ids {
		items = append(items, itemAged(id, time.Duration(i+1)*time.Hour))
	}
	return items
}

func TestPipelinePublishesTopItemsInScoreOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = []domain.ContentItem{
		itemAged("old", 30*time.Hour),
		itemAged("newest", 10*time.Minute),
		itemAged("mid", 3*time.Hour),
		itemAged("fresh", time.Hour),
		{ID: "undated"},
	}

	summary := fx.pipeline().Run(context.Background())

	if len(summary.Results) != 1 || summary.Results[0].Outcome != OutcomeCompleted {
		t.Fatalf("unexpected results: %+v", summary.Results)
	}
	got := fx.publisher.itemsFor("alpha")
	want := []string{"newest", "fresh", "mid"}
	if len(got) != len(want) {
		t.Fatalf("expected %v published, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if len(fx.metrics.records) != 3 {
		t.Fatalf("expected 3 metric records, got %d", len(fx.metrics.records))
	}
	if len(fx.ledger.records) != 3 {
		t.Fatalf("expected 3 publication records, got %d", len(fx.ledger.records))
	}
	if len(fx.sleeper.delays) != 2 {
		t.Fatalf("expected pauses only between items, got %v", fx.sleeper.delays)
	}
	if fx.events.count(domain.CategoryPublishSuccess) != 3 {
		t.Fatalf("expected 3 success events, got %d", fx.events.count(domain.CategoryPublishSuccess))
	}
}

func TestPipelineSkipsAlreadyPublishedItems(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a", "b", "c")
	fx.ledger.seed(1, "b")

	result := fx.pipeline().ProcessClient(context.Background(), testClient(1, "alpha"))

	for _, id := range fx.publisher.itemsFor("alpha") {
		if id == "b" {
			t.Fatalf("already published item was sent to the publisher again")
		}
	}
	if result.Skipped != 1 || result.Published != 2 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	for _, rec := range fx.ledger.records {
		if rec.ItemID == "b" {
			t.Fatalf("duplicate publication record created for b")
		}
	}
}

func TestPipelineRerunDoesNotRepublish(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a", "b", "c")
	p := fx.pipeline()

	p.Run(context.Background())
	second := p.Run(context.Background())

	if len(fx.publisher.calls) != 3 {
		t.Fatalf("expected 3 publish calls across both runs, got %d", len(fx.publisher.calls))
	}
	if len(fx.ledger.records) != 3 {
		t.Fatalf("expected 3 publication records, got %d", len(fx.ledger.records))
	}
	if second.Results[0].Skipped != 3 {
		t.Fatalf("expected second run to skip all items, got %+v", second.Results[0])
	}
}

func TestPipelineIsolatesFailingClient(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"), testClient(2, "beta"))
	fx.source.panicOn["alpha"] = true
	fx.source.items["beta"] = feed("x", "y")

	summary := fx.pipeline().Run(context.Background())

	if len(summary.Results) != 2 {
		t.Fatalf("expected both clients processed, got %d", len(summary.Results))
	}
	if summary.Results[0].Outcome != OutcomeFailed || summary.Results[0].Err == nil {
		t.Fatalf("expected alpha to fail, got %+v", summary.Results[0])
	}
	if summary.Results[1].Outcome != OutcomeCompleted || summary.Results[1].Published != 2 {
		t.Fatalf("expected beta fully processed, got %+v", summary.Results[1])
	}
	if len(fx.events.containing("Error processing client alpha")) != 1 {
		t.Fatalf("expected critical event for alpha, got %+v", fx.events.entries)
	}
}

func TestPipelineEmptyFetchSkipsClient(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))

	result := fx.pipeline().ProcessClient(context.Background(), testClient(1, "alpha"))

	if result.Outcome != OutcomeNoItems {
		t.Fatalf("expected no_items, got %s", result.Outcome)
	}
	if len(fx.publisher.calls) != 0 || len(fx.metrics.records) != 0 {
		t.Fatalf("expected nothing published or recorded")
	}
	if fx.events.count(domain.CategorySourceFetch) != 1 {
		t.Fatalf("expected a source fetch event")
	}
}

func TestPipelineAuthFailureSkipsPublishing(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"), testClient(2, "beta"))
	fx.source.items["alpha"] = feed("a", "b")
	fx.source.items["beta"] = feed("c")
	fx.publisher.authFail["alpha"] = true

	summary := fx.pipeline().Run(context.Background())

	if summary.Results[0].Outcome != OutcomeAuthFailed {
		t.Fatalf("expected auth failure for alpha, got %+v", summary.Results[0])
	}
	if len(fx.publisher.itemsFor("alpha")) != 0 {
		t.Fatalf("expected no publish attempts for alpha")
	}
	if got := fx.publisher.itemsFor("beta"); len(got) != 1 || got[0] != "c" {
		t.Fatalf("expected beta to publish c, got %v", got)
	}
	if len(fx.metrics.records) != 3 {
		t.Fatalf("expected metrics for all selected items, got %d", len(fx.metrics.records))
	}
	if len(fx.events.containing("Social login failed for alpha.")) != 1 {
		t.Fatalf("expected login failure event")
	}
}

func TestPipelinePacingAfterSuccessAndFailure(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a", "b", "c")
	fx.publisher.failItems["b"] = true

	result := fx.pipeline().ProcessClient(context.Background(), testClient(1, "alpha"))

	if result.Published != 2 || result.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	if len(fx.sleeper.delays) != 2 {
		t.Fatalf("expected 2 pauses, got %v", fx.sleeper.delays)
	}
	afterSuccess := fx.sleeper.delays[0]
	if afterSuccess < pauseMin || afterSuccess > pauseMax {
		t.Fatalf("success pause %s outside [%s, %s]", afterSuccess, pauseMin, pauseMax)
	}
	if afterSuccess%time.Second != 0 {
		t.Fatalf("success pause %s is not whole seconds", afterSuccess)
	}
	if fx.sleeper.delays[1] != cooldown {
		t.Fatalf("expected failure cooldown %s, got %s", cooldown, fx.sleeper.delays[1])
	}
}

func TestPipelineNoPauseBeforeAlreadyPublishedTail(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a", "b")
	fx.ledger.seed(1, "b")

	result := fx.pipeline().ProcessClient(context.Background(), testClient(1, "alpha"))

	if result.Published != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	if len(fx.sleeper.delays) != 0 {
		t.Fatalf("expected no pause when nothing follows, got %v", fx.sleeper.delays)
	}
}

func TestPipelinePauseSpansSkippedItems(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a", "b", "c")
	fx.ledger.seed(1, "b")

	result := fx.pipeline().ProcessClient(context.Background(), testClient(1, "alpha"))

	if result.Published != 2 || result.Skipped != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	if len(fx.sleeper.delays) != 1 {
		t.Fatalf("expected one pause between a and c, got %v", fx.sleeper.delays)
	}
}

func TestPipelineFailedItemStaysEligible(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a")
	fx.publisher.failItems["a"] = true
	p := fx.pipeline()

	p.Run(context.Background())
	if len(fx.ledger.records) != 0 {
		t.Fatalf("failed publish must not be recorded")
	}

	delete(fx.publisher.failItems, "a")
	p.Run(context.Background())
	if len(fx.ledger.records) != 1 || fx.ledger.records[0].ItemID != "a" {
		t.Fatalf("expected a to be published on the next run, got %+v", fx.ledger.records)
	}
}

func TestPipelineStopsWhenSleepIsInterrupted(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a", "b", "c")
	fx.sleeper.err = context.Canceled

	result := fx.pipeline().ProcessClient(context.Background(), testClient(1, "alpha"))

	if result.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", result.Outcome)
	}
	if result.Published != 1 {
		t.Fatalf("expected exactly one publish before interruption, got %d", result.Published)
	}
}

func TestPipelineNoActiveClients(t *testing.T) {
	t.Parallel()

	fx := newFixture()

	summary := fx.pipeline().Run(context.Background())

	if len(summary.Results) != 0 {
		t.Fatalf("expected no results")
	}
	if fx.events.count(domain.CategoryPublishTask) != 1 {
		t.Fatalf("expected no-clients event, got %+v", fx.events.entries)
	}
}

func TestPipelineLedgerErrorFailsOnlyThatClient(t *testing.T) {
	t.Parallel()

	fx := newFixture(testClient(1, "alpha"))
	fx.source.items["alpha"] = feed("a")
	fx.ledger.err = errStore

	summary := fx.pipeline().Run(context.Background())

	if summary.Results[0].Outcome != OutcomeFailed {
		t.Fatalf("expected failure, got %+v", summary.Results[0])
	}
	if len(fx.publisher.calls) != 0 {
		t.Fatalf("must not publish without an idempotency check")
	}
}

func TestPacerBounds(t *testing.T) {
	t.Parallel()

	p := NewPacer(pauseMin, pauseMax, cooldown, rand.New(rand.NewSource(42)))
	for i := 0; i < 500; i++ {
		d := p.AfterSuccess()
		if d < pauseMin || d > pauseMax {
			t.Fatalf("draw %s outside bounds", d)
		}
	}

	fixed := NewPacer(time.Minute, time.Minute, cooldown, nil)
	if d := fixed.AfterSuccess(); d != time.Minute {
		t.Fatalf("expected exactly 1m, got %s", d)
	}
	if d := fixed.AfterFailure(); d != cooldown {
		t.Fatalf("expected cooldown, got %s", d)
	}
}
