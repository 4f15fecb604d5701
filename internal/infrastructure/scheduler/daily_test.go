package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func at(day, hour, minute int, loc *time.Location) time.Time {
	return time.Date(2025, time.November, day, hour, minute, 0, 0, loc)
}

func waitIdle(t *testing.T, s *DailyScheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func waitJobIdle(t *testing.T, s *DailyScheduler, name string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		var running bool
		for _, j := range s.jobs {
			if j.name == name && j.running.Load() {
				running = true
			}
		}
		s.mu.Unlock()
		if !running {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s still running", name)
}

func TestRegisterRejectsMalformedTimes(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(time.UTC, nil)
	for _, bad := range []string{"9", "25:00", "09:60", "nine"} {
		if err := s.Register("publish", []string{bad}, func(context.Context) {}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFireDueRunsEachJobAtItsTime(t *testing.T) {
	t.Parallel()

	now := at(8, 8, 0, time.UTC)
	s := NewDailyScheduler(time.UTC, nil, WithClock(func() time.Time { return now }))

	var publish, report atomic.Int32
	if err := s.Register("publish", []string{"09:00", "14:00"}, func(context.Context) { publish.Add(1) }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register("report", []string{"10:00"}, func(context.Context) { report.Add(1) }); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := context.Background()
	if got := s.fireDue(ctx, at(8, 8, 59, time.UTC)); len(got) != 0 {
		t.Fatalf("nothing should be due yet, got %v", got)
	}
	if got := s.fireDue(ctx, at(8, 9, 0, time.UTC)); len(got) != 1 || got[0] != "publish" {
		t.Fatalf("expected publish to fire, got %v", got)
	}
	waitIdle(t, s)
	if got := s.fireDue(ctx, at(8, 9, 0, time.UTC).Add(time.Second)); len(got) != 0 {
		t.Fatalf("publish must fire once per time, got %v", got)
	}
	if got := s.fireDue(ctx, at(8, 10, 0, time.UTC)); len(got) != 1 || got[0] != "report" {
		t.Fatalf("expected report to fire, got %v", got)
	}
	waitIdle(t, s)
	if got := s.fireDue(ctx, at(8, 14, 0, time.UTC)); len(got) != 1 {
		t.Fatalf("expected second publish slot, got %v", got)
	}
	waitIdle(t, s)
	if got := s.fireDue(ctx, at(9, 9, 0, time.UTC)); len(got) != 1 || got[0] != "publish" {
		t.Fatalf("expected publish again the next day, got %v", got)
	}
	waitIdle(t, s)

	if publish.Load() != 3 || report.Load() != 1 {
		t.Fatalf("unexpected run counts publish=%d report=%d", publish.Load(), report.Load())
	}
}

func TestFireDueHonorsLocation(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Cuiaba")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	start := time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC) // 08:00 local
	s := NewDailyScheduler(loc, nil, WithClock(func() time.Time { return start }))
	if err := s.Register("publish", []string{"09:53"}, func(context.Context) {}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := context.Background()
	if got := s.fireDue(ctx, time.Date(2025, time.November, 8, 13, 52, 59, 0, time.UTC)); len(got) != 0 {
		t.Fatalf("fired too early: %v", got)
	}
	if got := s.fireDue(ctx, time.Date(2025, time.November, 8, 13, 53, 0, 0, time.UTC)); len(got) != 1 {
		t.Fatalf("expected firing at 09:53 local, got %v", got)
	}
	waitIdle(t, s)
}

func TestOverlappingFiringIsSkipped(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(time.UTC, nil, WithClock(func() time.Time { return at(8, 8, 0, time.UTC) }))

	release := make(chan struct{})
	var runs atomic.Int32
	if err := s.Register("publish", []string{"09:00"}, func(context.Context) {
		runs.Add(1)
		<-release
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := context.Background()
	if got := s.fireDue(ctx, at(8, 9, 0, time.UTC)); len(got) != 1 {
		t.Fatalf("expected first firing, got %v", got)
	}
	if got := s.fireDue(ctx, at(9, 9, 0, time.UTC)); len(got) != 0 {
		t.Fatalf("overlapping firing must be skipped, got %v", got)
	}
	close(release)
	waitIdle(t, s)

	if got := s.fireDue(ctx, at(10, 9, 0, time.UTC)); len(got) != 1 {
		t.Fatalf("expected firing after previous run finished, got %v", got)
	}
	waitIdle(t, s)
	if runs.Load() != 2 {
		t.Fatalf("expected 2 runs, got %d", runs.Load())
	}
}

func TestBlockedJobDoesNotBlockOtherJobs(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(time.UTC, nil, WithClock(func() time.Time { return at(8, 8, 0, time.UTC) }))

	release := make(chan struct{})
	reportDone := make(chan struct{}, 2)
	if err := s.Register("publish", []string{"09:00"}, func(context.Context) { <-release }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register("report", []string{"09:00"}, func(context.Context) { reportDone <- struct{}{} }); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := context.Background()
	if got := s.fireDue(ctx, at(8, 9, 0, time.UTC)); len(got) != 2 {
		t.Fatalf("expected both jobs to fire, got %v", got)
	}
	<-reportDone
	waitJobIdle(t, s, "report")

	got := s.fireDue(ctx, at(9, 9, 0, time.UTC))
	if len(got) != 1 || got[0] != "report" {
		t.Fatalf("expected only report while publish is still running, got %v", got)
	}
	select {
	case <-reportDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("report did not run while publish was blocked")
	}

	close(release)
	waitIdle(t, s)
}

func TestPanickingJobDoesNotKillScheduler(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(time.UTC, nil, WithClock(func() time.Time { return at(8, 8, 0, time.UTC) }))
	var calls atomic.Int32
	if err := s.Register("stats", []string{"23:55"}, func(context.Context) {
		calls.Add(1)
		panic("boom")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := context.Background()
	s.fireDue(ctx, at(8, 23, 55, time.UTC))
	waitIdle(t, s)
	s.fireDue(ctx, at(9, 23, 55, time.UTC))
	waitIdle(t, s)

	if calls.Load() != 2 {
		t.Fatalf("expected job to run on both days, got %d", calls.Load())
	}
}

func TestStartStopTicks(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(time.UTC, nil, WithTick(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	waitIdle(t, s)
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()

	tod := timeOfDay{hour: 9, minute: 30}
	if got := nextOccurrence(at(8, 9, 0, time.UTC), tod, time.UTC); !got.Equal(at(8, 9, 30, time.UTC)) {
		t.Fatalf("expected same day, got %v", got)
	}
	if got := nextOccurrence(at(8, 9, 30, time.UTC), tod, time.UTC); !got.Equal(at(9, 9, 30, time.UTC)) {
		t.Fatalf("expected next day, got %v", got)
	}
}
