package admission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Koplal/tai-discord-bot/pkg/access"
	"github.com/Koplal/tai-discord-bot/pkg/config"
)

// fakeClock is a manually advanced clock for refill arithmetic.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// testTiers uses round numbers so refill math is exact: free refills one
// token per second, admin a hundred.
func testTiers() config.TiersConfig {
	return config.TiersConfig{
		Free:    config.TierConfig{Rate: config.RateConfig{Capacity: 3, RefillPerMinute: 60}},
		Premium: config.TierConfig{Rate: config.RateConfig{Capacity: 5, RefillPerMinute: 120}},
		Admin:   config.TierConfig{Rate: config.RateConfig{Capacity: 100, RefillPerMinute: 6000}},
	}
}

func newTestController(clock *fakeClock) *Controller {
	return New(testTiers(), clock.Now, nil)
}

func drain(t *testing.T, c *Controller, callerID string, tier access.Tier, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if d := c.Check(callerID, tier); !d.Allowed {
			t.Fatalf("check %d: expected allowed, got denied (retry after %v)", i+1, d.RetryAfter)
		}
	}
}

func TestBurstFromFullEqualsCapacity(t *testing.T) {
	c := newTestController(newFakeClock())

	for i, want := range []float64{2, 1, 0} {
		d := c.Check("user-1", access.TierFree)
		if !d.Allowed {
			t.Fatalf("check %d: expected allowed", i+1)
		}
		if d.Remaining != want {
			t.Errorf("check %d: remaining = %v, want %v", i+1, d.Remaining, want)
		}
	}

	if d := c.Check("user-1", access.TierFree); d.Allowed {
		t.Error("expected denial once the bucket is empty")
	}
}

func TestRetryAfterCoversDeficit(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	drain(t, c, "user-1", access.TierFree, 3)

	// Empty bucket at one token per second: a full token is one second out.
	d := c.Check("user-1", access.TierFree)
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if d.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", d.RetryAfter)
	}

	// Half a token accrued: the remaining half second rounds up to a
	// whole one.
	clock.Advance(500 * time.Millisecond)
	d = c.Check("user-1", access.TierFree)
	if d.Allowed {
		t.Fatal("expected denial at half a token")
	}
	if d.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", d.RetryAfter)
	}
}

func TestRefillRestoresAdmission(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	drain(t, c, "user-1", access.TierFree, 3)

	clock.Advance(time.Second)
	d := c.Check("user-1", access.TierFree)
	if !d.Allowed {
		t.Fatalf("expected admission after refill, denied with retry %v", d.RetryAfter)
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %v, want 0", d.Remaining)
	}
}

func TestRefillCapsAtCapacity(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	drain(t, c, "user-1", access.TierFree, 1)

	// An hour of idle time still tops out at capacity, not capacity plus
	// an hour of refill.
	clock.Advance(time.Hour)
	drain(t, c, "user-1", access.TierFree, 3)
	if d := c.Check("user-1", access.TierFree); d.Allowed {
		t.Error("expected denial after the capped burst")
	}
}

func TestCallersAreIsolated(t *testing.T) {
	c := newTestController(newFakeClock())
	drain(t, c, "user-1", access.TierFree, 3)

	if d := c.Check("user-2", access.TierFree); !d.Allowed {
		t.Error("a drained caller must not affect another caller's bucket")
	}
}

func TestTierChangeUsesNewLimits(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	drain(t, c, "user-1", access.TierFree, 3)

	// Promoted mid-stream: same bucket, admin refill rate from here on.
	clock.Advance(time.Second)
	d := c.Check("user-1", access.TierAdmin)
	if !d.Allowed {
		t.Fatal("expected admission at the admin refill rate")
	}
	if d.Remaining != 99 {
		t.Errorf("remaining = %v, want 99", d.Remaining)
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)

	c.Check("idle-user", access.TierFree)
	clock.Advance(10 * time.Minute)
	c.Check("active-user", access.TierFree)

	if n := c.Sweep(5 * time.Minute); n != 1 {
		t.Errorf("Sweep dropped %d buckets, want 1", n)
	}
	if got := c.Stats().ActiveBuckets; got != 1 {
		t.Errorf("ActiveBuckets = %d, want 1", got)
	}

	// The swept caller starts over with a full bucket.
	drain(t, c, "idle-user", access.TierFree, 3)
}

func TestStatsCounts(t *testing.T) {
	c := newTestController(newFakeClock())
	drain(t, c, "user-1", access.TierFree, 3)
	c.Check("user-1", access.TierFree)

	got := c.Stats()
	if got.Allowed != 3 || got.Denied != 1 || got.ActiveBuckets != 1 {
		t.Errorf("Stats = %+v, want {Allowed:3 Denied:1 ActiveBuckets:1}", got)
	}
}

func TestConcurrentFirstCheckCreatesOneBucket(t *testing.T) {
	c := newTestController(newFakeClock())

	const callers = 10
	var wg sync.WaitGroup
	results := make([]Decision, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Check("user-1", access.TierFree)
		}(i)
	}
	wg.Wait()

	allowed := 0
	for _, d := range results {
		if d.Allowed {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed %d concurrent checks, want exactly capacity (3)", allowed)
	}
	if got := c.Stats().ActiveBuckets; got != 1 {
		t.Errorf("ActiveBuckets = %d, want 1", got)
	}
}

func TestStartAndCloseSweeper(t *testing.T) {
	clock := newFakeClock()
	c := newTestController(clock)
	c.Check("user-1", access.TierFree)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx, 10*time.Millisecond, time.Minute)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not stop the sweeper")
	}
}
