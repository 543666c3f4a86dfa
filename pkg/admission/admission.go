// Package admission provides per-caller token bucket admission control.
// Buckets are materialized lazily on first check and refilled at read time;
// there is no background refill goroutine.
package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/access"
	"github.com/Koplal/tai-discord-bot/pkg/config"
	"github.com/Koplal/tai-discord-bot/pkg/logx"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  float64       // Tokens left after a successful deduction
	RetryAfter time.Duration // When denied: wait until one token accrues
}

// Limits sizes one tier's buckets.
type Limits struct {
	Capacity     float64
	RefillPerSec float64
}

// bucket is one caller's admission state. The mutex makes refill-and-deduct
// atomic per caller.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

// Controller admits or rejects requests per caller. Tier limits are looked
// up per call, so a caller whose tier changes keeps their bucket but gains
// the new allowance from the next check on.
type Controller struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	limits map[access.Tier]Limits
	now    func() time.Time
	logger *logx.Logger

	allowed atomic.Int64
	denied  atomic.Int64

	sweepCancel context.CancelFunc
	sweepDone   sync.WaitGroup
}

// Stats is a point-in-time snapshot of controller counters.
type Stats struct {
	Allowed       int64
	Denied        int64
	ActiveBuckets int
}

// New creates a controller sized by the tiers config. now is the clock used
// for refill arithmetic; nil means time.Now.
func New(cfg config.TiersConfig, now func() time.Time, logger *logx.Logger) *Controller {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = logx.NewLogger("admission")
	}

	return &Controller{
		buckets: make(map[string]*bucket),
		limits: map[access.Tier]Limits{
			access.TierFree:    limitsFrom(cfg.Free.Rate),
			access.TierPremium: limitsFrom(cfg.Premium.Rate),
			access.TierAdmin:   limitsFrom(cfg.Admin.Rate),
		},
		now:    now,
		logger: logger,
	}
}

// limitsFrom converts the per-minute config rate to per-second refill.
func limitsFrom(rc config.RateConfig) Limits {
	return Limits{Capacity: rc.Capacity, RefillPerSec: rc.RefillPerMinute / 60.0}
}

// Check refills the caller's bucket for the elapsed time and tries to
// deduct one token. This is the only mutating read.
func (c *Controller) Check(callerID string, tier access.Tier) Decision {
	limits := c.limits[tier]
	b := c.bucketFor(callerID, limits.Capacity)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := c.now()
	refill(b, limits, now)
	b.lastUsed = now

	if b.tokens >= 1 {
		b.tokens--
		c.allowed.Add(1)
		return Decision{Allowed: true, Remaining: b.tokens}
	}

	c.denied.Add(1)
	return Decision{RetryAfter: retryAfter(b.tokens, limits.RefillPerSec)}
}

// bucketFor returns the caller's bucket, creating it full on first use.
func (c *Controller) bucketFor(callerID string, capacity float64) *bucket {
	c.mu.RLock()
	b, ok := c.buckets[callerID]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.buckets[callerID]; ok {
		// A concurrent first check created it already
		return b
	}

	now := c.now()
	b = &bucket{tokens: capacity, lastRefill: now, lastUsed: now}
	c.buckets[callerID] = b
	return b
}

// refill adds elapsed time times rate, clamped to capacity. The clamp also
// shrinks oversized balances left behind by a tier downgrade. Caller holds
// b.mu.
func refill(b *bucket, limits Limits, now time.Time) {
	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens += elapsed * limits.RefillPerSec
		b.lastRefill = now
	}
	if b.tokens > limits.Capacity {
		b.tokens = limits.Capacity
	}
}

// retryAfter reports how long until a full token accrues, rounded up to a
// whole second so the advertised wait is actually long enough.
func retryAfter(tokens, refillPerSec float64) time.Duration {
	if refillPerSec <= 0 {
		// Zero rates are rejected at config validation; a zero-value
		// Limits still gets a finite answer.
		return time.Minute
	}

	need := 1 - tokens
	if need < 0 {
		need = 0
	}

	d := time.Duration(need / refillPerSec * float64(time.Second))
	if d <= 0 {
		return time.Second
	}
	if rem := d % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}

// Sweep drops buckets idle longer than idleFor and reports how many were
// dropped. Memory hygiene only: a dropped caller's next check starts from a
// full bucket.
func (c *Controller) Sweep(idleFor time.Duration) int {
	cutoff := c.now().Add(-idleFor)

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for id, b := range c.buckets {
		b.mu.Lock()
		idle := b.lastUsed.Before(cutoff)
		b.mu.Unlock()

		if idle {
			delete(c.buckets, id)
			dropped++
		}
	}
	return dropped
}

// Start launches the idle-bucket sweeper. It stops when ctx is cancelled or
// Close is called.
func (c *Controller) Start(ctx context.Context, interval, idleFor time.Duration) {
	ctx, c.sweepCancel = context.WithCancel(ctx)

	c.sweepDone.Add(1)
	go func() {
		defer c.sweepDone.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(idleFor); n > 0 {
					c.logger.Debug("swept %d idle buckets", n)
				}
			}
		}
	}()
}

// Close stops the sweeper and waits for it to exit.
func (c *Controller) Close() {
	if c.sweepCancel != nil {
		c.sweepCancel()
	}
	c.sweepDone.Wait()
}

// Stats returns current controller counters.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	active := len(c.buckets)
	c.mu.RUnlock()

	return Stats{
		Allowed:       c.allowed.Load(),
		Denied:        c.denied.Load(),
		ActiveBuckets: active,
	}
}
