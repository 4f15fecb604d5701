package usecase

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer draws the courtesy delays inserted between publish attempts.
type Pacer struct {
	min      time.Duration
	max      time.Duration
	cooldown time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer builds a pacer for successes in [min, max] and a fixed failure cooldown.
// A nil rnd is seeded from the clock.
func NewPacer(min, max, cooldown time.Duration, rnd *rand.Rand) *Pacer {
	if max < min {
		min, max = max, min
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pacer{min: min, max: max, cooldown: cooldown, rnd: rnd}
}

// AfterSuccess returns a whole-second delay drawn uniformly from [min, max].
func (p *Pacer) AfterSuccess() time.Duration {
	lo := int64(p.min / time.Second)
	hi := int64(p.max / time.Second)
	p.mu.Lock()
	n := lo + p.rnd.Int63n(hi-lo+1)
	p.mu.Unlock()
	return time.Duration(n) * time.Second
}

// AfterFailure returns the fixed cooldown.
func (p *Pacer) AfterFailure() time.Duration {
	return p.cooldown
}

// SleepContext waits for d or until ctx is cancelled.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
