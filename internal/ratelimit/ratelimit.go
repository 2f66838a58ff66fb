// Package ratelimit provides a keyed token bucket limiter for inbound requests.
package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a key may go unused before its bucket is dropped. A full
// bucket refills well within this, so dropping it loses nothing.
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives every key (typically a client IP) its own bucket.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing rps requests per second with the given burst.
func New(rps float64, burst int) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   max(burst, 1),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go krl.cleanup(idleTTL)
	return krl
}

// NewPer creates a limiter allowing count requests per interval, all of which may
// arrive at once.
func NewPer(count int, interval time.Duration) *KeyedRateLimiter {
	return New(float64(count)/interval.Seconds(), count)
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	b, ok := krl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.buckets[key] = b
	}
	b.lastSeen = krl.now()
	krl.mu.Unlock()

	return b.limiter.Allow()
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.buckets)
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup(ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.prune(ttl)
		}
	}
}

// prune drops buckets idle for longer than ttl.
func (krl *KeyedRateLimiter) prune(ttl time.Duration) {
	cutoff := krl.now().Add(-ttl)
	krl.mu.Lock()
	defer krl.mu.Unlock()
	for key, b := range krl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(krl.buckets, key)
		}
	}
}

// ParseRate parses limits written as "<count>/<unit>", for example "10/min",
// "5/s" or "100/h". The unit may also be a Go duration, as in "3/30s".
func ParseRate(s string) (int, time.Duration, error) {
	countPart, unitPart, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("rate %q: want <count>/<unit>", s)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("rate %q: count must be a positive integer", s)
	}

	unitPart = strings.TrimSpace(unitPart)
	var interval time.Duration
	switch strings.ToLower(unitPart) {
	case "s", "sec", "second":
		interval = time.Second
	case "m", "min", "minute":
		interval = time.Minute
	case "h", "hour":
		interval = time.Hour
	default:
		interval, err = time.ParseDuration(unitPart)
		if err != nil || interval <= 0 {
			return 0, 0, fmt.Errorf("rate %q: unknown unit %q", s, unitPart)
		}
	}
	return count, interval, nil
}
