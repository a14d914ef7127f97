// Package ratelimit provides a per-key token bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed manages one token bucket per key (typically a client IP).
// Keys idle for longer than the idle timeout are evicted by a background
// sweeper until Stop is called.
type Keyed struct {
	mu       sync.Mutex
	entries  map[string]*entry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// DefaultIdle is how long an unused key is kept.
const DefaultIdle = 10 * time.Minute

// New creates a keyed limiter allowing rps requests per second with the given
// burst per key.
func New(rps float64, burst int) *Keyed {
	k := &Keyed{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    DefaultIdle,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go k.sweepLoop()
	return k
}

// Allow reports whether a request for key may proceed now.
func (k *Keyed) Allow(key string) bool {
	return k.get(key).Allow()
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Stop shuts down the sweeper.
func (k *Keyed) Stop() {
	k.stopOnce.Do(func() { close(k.done) })
}

func (k *Keyed) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = k.now()
	return e.limiter
}

// sweep drops keys not seen within the idle timeout.
func (k *Keyed) sweep() {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := k.now().Add(-k.idle)
	for key, e := range k.entries {
		if e.lastSeen.Before(cutoff) {
			delete(k.entries, key)
		}
	}
}

func (k *Keyed) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			k.sweep()
		case <-k.done:
			return
		}
	}
}
