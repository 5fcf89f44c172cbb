package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrBreakerOpen is returned while the breaker rejects calls.
var ErrBreakerOpen = eris.New("upstream breaker is open")

// Breaker stops calling an upstream after Threshold consecutive failures
// and lets a single trial call through once Cooldown has elapsed.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	trialing bool
	now      func() time.Time
}

// NewBreaker creates a breaker. A threshold of zero disables it.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

// Allow returns ErrBreakerOpen when the call should be skipped.
func (b *Breaker) Allow() error {
	if b == nil || b.Threshold <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.Threshold {
		return nil
	}
	if b.trialing || b.now().Sub(b.openedAt) < b.Cooldown {
		return ErrBreakerOpen
	}
	b.trialing = true
	return nil
}

// Record feeds the outcome of an allowed call back into the breaker.
// Only transient failures count. Any other upstream answer closes it, and a
// cancelled call leaves it as it was.
func (b *Breaker) Record(err error) {
	if b == nil || b.Threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialing = false
	switch {
	case err == nil:
		b.failures = 0
		return
	case errors.Is(err, context.Canceled):
		// The caller gave up before the upstream answered.
		return
	case !IsTransient(err):
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.Threshold {
		b.openedAt = b.now()
	}
}

// Release frees the trial slot of an allowed call that ended without an
// upstream answer, such as one whose request context expired. The failure
// count is left untouched.
func (b *Breaker) Release() {
	if b == nil || b.Threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialing = false
}

// Open reports whether calls are currently being rejected.
func (b *Breaker) Open() bool {
	if b == nil || b.Threshold <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.Threshold && (b.trialing || b.now().Sub(b.openedAt) < b.Cooldown)
}
