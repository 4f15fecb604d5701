package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"NewsPublisher/internal/ports"
)

const defaultTick = time.Second

type timeOfDay struct {
	hour   int
	minute int
}

type job struct {
	name    string
	times   []timeOfDay
	next    []time.Time
	run     func(context.Context)
	running atomic.Bool
}

// Option tweaks a DailyScheduler.
type Option func(*DailyScheduler)

// WithTick overrides the polling resolution.
func WithTick(d time.Duration) Option {
	return func(s *DailyScheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *DailyScheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// DailyScheduler fires each registered job once per day at its wall-clock times
// in a fixed location. A tick loop checks for due jobs; every firing runs in its
// own goroutine. A job that is still running when it becomes due again is skipped.
type DailyScheduler struct {
	loc    *time.Location
	tick   time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	jobs []*job

	stop     chan struct{}
	loopDone chan struct{}
	inflight sync.WaitGroup
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler bound to loc (UTC when nil).
func NewDailyScheduler(loc *time.Location, logger *slog.Logger, opts ...Option) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &DailyScheduler{loc: loc, tick: defaultTick, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a job firing at each HH:MM entry of times.
func (s *DailyScheduler) Register(name string, times []string, run func(context.Context)) error {
	if run == nil {
		return fmt.Errorf("job %s has no body", name)
	}
	parsed := make([]timeOfDay, 0, len(times))
	for _, raw := range times {
		tod, err := parseTimeOfDay(raw)
		if err != nil {
			return fmt.Errorf("job %s: %w", name, err)
		}
		parsed = append(parsed, tod)
	}

	j := &job{name: name, times: parsed, run: run}
	s.mu.Lock()
	defer s.mu.Unlock()
	j.next = s.nextFirings(j, s.now())
	s.jobs = append(s.jobs, j)
	return nil
}

// Start launches the tick loop; calling it twice is a no-op.
func (s *DailyScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return nil
	}
	s.stop = make(chan struct{})
	s.loopDone = make(chan struct{})
	stop, done := s.stop, s.loopDone
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.fireDue(ctx, s.now())
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the tick loop and waits for in-flight firings until ctx expires.
func (s *DailyScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.loopDone
	s.stop, s.loopDone = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	finished := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// fireDue dispatches every job with a firing at or before now and returns
// the names of the jobs that were started.
func (s *DailyScheduler) fireDue(ctx context.Context, now time.Time) []string {
	local := now.In(s.loc)

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		fire := false
		for i, next := range j.next {
			if local.Before(next) {
				continue
			}
			fire = true
			j.next[i] = nextOccurrence(local, j.times[i], s.loc)
		}
		if fire {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	var started []string
	for _, j := range due {
		if s.dispatch(ctx, j) {
			started = append(started, j.name)
		}
	}
	return started
}

func (s *DailyScheduler) dispatch(ctx context.Context, j *job) bool {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in progress, skipping firing", "job", j.name)
		return false
	}

	logger := s.logger.With("job", j.name, "run_id", uuid.NewString())
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer j.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("job panicked", "panic", r)
			}
		}()

		start := time.Now()
		logger.Info("job started")
		j.run(ctx)
		logger.Info("job finished", "took", time.Since(start).Round(time.Millisecond))
	}()
	return true
}

func (s *DailyScheduler) nextFirings(j *job, now time.Time) []time.Time {
	local := now.In(s.loc)
	next := make([]time.Time, len(j.times))
	for i, tod := range j.times {
		next[i] = nextOccurrence(local, tod, s.loc)
	}
	return next
}

func nextOccurrence(now time.Time, tod timeOfDay, loc *time.Location) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), tod.hour, tod.minute, 0, 0, loc)
	if !t.After(now) {
		t = time.Date(now.Year(), now.Month(), now.Day()+1, tod.hour, tod.minute, 0, 0, loc)
	}
	return t
}

func parseTimeOfDay(raw string) (timeOfDay, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return timeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", raw)
	}
	return timeOfDay{hour: t.Hour(), minute: t.Minute()}, nil
}
