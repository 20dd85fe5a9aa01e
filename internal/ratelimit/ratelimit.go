package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out scrape requests against a platform. The delay after a
// failed request is shorter than after a success: a failed page rendered
// less, so less settling time is needed to look human.
//
// The mutex guards only the configured delays; callers sleep unlocked, so
// concurrent platform tasks sharing one Pacer pace independently.
type Pacer struct {
	mu           sync.Mutex
	successDelay time.Duration
	errorDelay   time.Duration
	jitter       bool
}

func NewPacer(successDelay, errorDelay time.Duration) *Pacer {
	return &Pacer{
		successDelay: successDelay,
		errorDelay:   errorDelay,
		jitter:       true,
	}
}

// AfterSuccess blocks for the success delay, or until ctx is done.
func (p *Pacer) AfterSuccess(ctx context.Context) error {
	delay, jitter := p.snapshot()
	return pause(ctx, delay.success, jitter)
}

// AfterError blocks for the error delay, or until ctx is done.
func (p *Pacer) AfterError(ctx context.Context) error {
	delay, jitter := p.snapshot()
	return pause(ctx, delay.err, jitter)
}

type delays struct {
	success time.Duration
	err     time.Duration
}

func (p *Pacer) snapshot() (delays, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return delays{success: p.successDelay, err: p.errorDelay}, p.jitter
}

func pause(ctx context.Context, delay time.Duration, jitter bool) error {
	if delay <= 0 {
		return nil
	}
	if jitter {
		// up to 20% extra, never less than the base delay
		delay += time.Duration(rand.Int63n(int64(delay / 5)))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// SetDelays adjusts the pacing, primarily for tests.
func (p *Pacer) SetDelays(successDelay, errorDelay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successDelay = successDelay
	p.errorDelay = errorDelay
	p.jitter = false
}
