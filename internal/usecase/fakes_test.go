package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"NewsPublisher/internal/domain"
)

type fakeRegistry struct {
	clients []domain.Client
	err     error
}

func (f *fakeRegistry) ListActiveClients(ctx context.Context) ([]domain.Client, error) {
	return f.clients, f.err
}

type fakeSource struct {
	items   map[string][]domain.ContentItem
	panicOn map[string]bool
	calls   []string
}

func (f *fakeSource) FetchRecent(ctx context.Context, source domain.Source, limit int) []domain.ContentItem {
	f.calls = append(f.calls, source.Endpoint)
	if f.panicOn[source.Endpoint] {
		panic("source exploded")
	}
	items := f.items[source.Endpoint]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

type fakeLedger struct {
	mu        sync.Mutex
	published map[int64]map[string]bool
	records   []domain.PublicationRecord
	err       error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{published: map[int64]map[string]bool{}}
}

func (f *fakeLedger) seed(clientID int64, itemID string) {
	if f.published[clientID] == nil {
		f.published[clientID] = map[string]bool{}
	}
	f.published[clientID][itemID] = true
}

func (f *fakeLedger) PublishedIDs(ctx context.Context, clientID int64) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]bool{}
	for id := range f.published[clientID] {
		out[id] = true
	}
	return out, nil
}

func (f *fakeLedger) RecordPublication(ctx context.Context, rec domain.PublicationRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published[rec.ClientID][rec.ItemID] {
		return false, nil
	}
	f.seed(rec.ClientID, rec.ItemID)
	f.records = append(f.records, rec)
	return true, nil
}

type fakeMetrics struct {
	records []domain.MetricRecord
	err     error
}

func (f *fakeMetrics) RecordMetric(ctx context.Context, rec domain.MetricRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeMetrics) MetricsForClient(ctx context.Context, clientID int64) ([]domain.MetricRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.MetricRecord
	for _, rec := range f.records {
		if rec.ClientID == clientID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type publishCall struct {
	account string
	itemID  string
	caption string
}

type fakePublisher struct {
	authFail  map[string]bool
	failItems map[string]bool
	calls     []publishCall
}

func (f *fakePublisher) Authenticate(ctx context.Context, creds domain.SocialCredentials) (*domain.Session, error) {
	if f.authFail[creds.Account] {
		return nil, domain.ErrAuthentication
	}
	return &domain.Session{AccountID: creds.Account, Username: creds.Account}, nil
}

func (f *fakePublisher) Publish(ctx context.Context, session *domain.Session, post domain.Post) error {
	f.calls = append(f.calls, publishCall{account: session.AccountID, itemID: post.Item.ID, caption: post.Caption})
	if f.failItems[post.Item.ID] {
		return domain.ErrPublish
	}
	return nil
}

func (f *fakePublisher) itemsFor(account string) []string {
	var out []string
	for _, c := range f.calls {
		if c.account == account {
			out = append(out, c.itemID)
		}
	}
	return out
}

type fakeEvents struct {
	entries []domain.EventLogEntry
}

func (f *fakeEvents) AppendEvent(ctx context.Context, category, message string) error {
	f.entries = append(f.entries, domain.EventLogEntry{Category: category, Message: message})
	return nil
}

func (f *fakeEvents) count(category string) int {
	n := 0
	for _, e := range f.entries {
		if e.Category == category {
			n++
		}
	}
	return n
}

func (f *fakeEvents) containing(substr string) []domain.EventLogEntry {
	var out []domain.EventLogEntry
	for _, e := range f.entries {
		if strings.Contains(e.Message, substr) {
			out = append(out, e)
		}
	}
	return out
}

type sleepRecorder struct {
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

var errStore = errors.New("store unavailable")

func fixedClock() time.Time { return scoreNow }
