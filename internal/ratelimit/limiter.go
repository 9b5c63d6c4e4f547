// Package ratelimit enforces the daily generation quota for anonymous API
// callers. It is keyed by client identity (usually IP) and is independent
// of the quota a guest client tracks for itself.
package ratelimit

import (
	"context"
	"fmt"
	"net/netip"
	"sync/atomic"
	"time"
)

const (
	// DefaultLimit is how many anonymous generations a key gets per window
	DefaultLimit = 3
	// DefaultWindow is the fixed window length
	DefaultWindow = 24 * time.Hour
	// KeyPrefix namespaces anonymous limiter keys
	KeyPrefix = "anonymous:"
)

// Result is the outcome of a Check
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// Window is a key's counter state after a hit
type Window struct {
	Count   int
	Start   time.Time
	Allowed bool
}

// Store holds fixed-window counters. Hit must run its read-check-increment
// atomically per key: concurrent hits on one key may never both be admitted
// for the last slot.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Window, error)
}

// Limiter is a fixed-window counter over a Store
type Limiter struct {
	store  Store
	limit  atomic.Int64
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithLimit sets the number of requests allowed per window
func WithLimit(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.limit.Store(int64(n))
		}
	}
}

// WithWindow sets the window length
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter with DefaultLimit requests per DefaultWindow
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		window: DefaultWindow,
		now:    time.Now,
	}
	l.limit.Store(DefaultLimit)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the per-window request limit
func (l *Limiter) Limit() int {
	return int(l.limit.Load())
}

// SetLimit changes the limit for subsequent checks. Non-positive values are
// ignored. Counters already in a window keep counting against the new limit.
func (l *Limiter) SetLimit(n int) {
	if n > 0 {
		l.limit.Store(int64(n))
	}
}

// Check counts one request for key. The first request of a window starts it
// and is admitted with limit-1 remaining; once limit requests have been
// admitted, further requests are rejected until the window that began with
// the first one has passed. A rejection is a normal result, not an error.
func (l *Limiter) Check(ctx context.Context, key string) (Result, error) {
	limit := l.Limit()
	w, err := l.store.Hit(ctx, key, l.now(), l.window, limit)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check rate limit: %w", err)
	}

	res := Result{
		Allowed:   w.Allowed,
		Remaining: max(0, limit-w.Count),
		ResetTime: w.Start.Add(l.window),
	}
	if !w.Allowed {
		res.Remaining = 0
	}
	return res, nil
}

// KeyForIP builds the limiter key for an anonymous client address. IPv6
// clients share one quota per /64, since a single host usually owns the
// whole prefix.
func KeyForIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return KeyPrefix + ip
	}
	addr = addr.Unmap()
	if addr.Is6() {
		if prefix, err := addr.Prefix(64); err == nil {
			return KeyPrefix + prefix.String()
		}
	}
	return KeyPrefix + addr.String()
}
