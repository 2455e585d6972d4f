// Package throttle limits call rates per caller key.
package throttle

import (
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"golang.org/x/time/rate"
)

// Config configures a KeyedThrottle.
//
// Each key gets its own token bucket refilled at EachPerSec with capacity EachBurst.
// TotalPerSec, when positive, additionally caps the sum over all keys.
// Buckets idle for IdleTTL are dropped, and at most MaxKeys buckets are kept.
type Config struct {
	TotalPerSec float64
	TotalBurst  int
	EachPerSec  float64
	EachBurst   int
	MaxKeys     int
	IdleTTL     time.Duration
}

const (
	defaultMaxKeys = 10000
	defaultIdleTTL = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedThrottle keeps one token bucket per key.
type KeyedThrottle struct {
	sync.Mutex
	cfg   Config
	total *rate.Limiter
	keys  map[string]*bucket
	now   func() time.Time
}

// New creates a KeyedThrottle.
func New(cfg Config) (*KeyedThrottle, error) {
	if cfg.EachPerSec <= 0 {
		return nil, errors.New("EachPerSec must be bigger than 0")
	}
	if cfg.EachBurst < 1 {
		cfg.EachBurst = int(cfg.EachPerSec)
		if cfg.EachBurst < 1 {
			cfg.EachBurst = 1
		}
	}
	if cfg.TotalPerSec < 0 {
		return nil, errors.New("TotalPerSec must not be negative")
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}

	t := &KeyedThrottle{
		cfg:  cfg,
		keys: make(map[string]*bucket),
		now:  time.Now,
	}
	if cfg.TotalPerSec > 0 {
		if cfg.TotalBurst < 1 {
			cfg.TotalBurst = max(int(cfg.TotalPerSec), 1)
		}
		t.total = rate.NewLimiter(rate.Limit(cfg.TotalPerSec), cfg.TotalBurst)
	}

	return t, nil
}

// Allow reports whether one more call for key may proceed now.
func (t *KeyedThrottle) Allow(key string) bool {
	if !t.limiter(key).Allow() {
		return false
	}
	if t.total != nil && !t.total.Allow() {
		return false
	}

	return true
}

// Len returns the number of tracked keys.
func (t *KeyedThrottle) Len() int {
	t.Lock()
	defer t.Unlock()
	return len(t.keys)
}

func (t *KeyedThrottle) limiter(key string) *rate.Limiter {
	t.Lock()
	defer t.Unlock()

	now := t.now()
	if b, ok := t.keys[key]; ok {
		b.lastSeen = now
		return b.limiter
	}

	if len(t.keys) >= t.cfg.MaxKeys {
		t.evict(now)
	}

	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(t.cfg.EachPerSec), t.cfg.EachBurst),
		lastSeen: now,
	}
	t.keys[key] = b
	return b.limiter
}

// evict drops idle buckets, then the least recently seen one if still full.
// Caller must hold the lock.
func (t *KeyedThrottle) evict(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, b := range t.keys {
		if now.Sub(b.lastSeen) >= t.cfg.IdleTTL {
			delete(t.keys, key)
			continue
		}
		if oldestKey == "" || b.lastSeen.Before(oldestAt) {
			oldestKey, oldestAt = key, b.lastSeen
		}
	}

	if len(t.keys) >= t.cfg.MaxKeys && oldestKey != "" {
		delete(t.keys, oldestKey)
	}
}
