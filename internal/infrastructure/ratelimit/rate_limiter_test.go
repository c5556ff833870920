package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, period time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, period)
	rl.now = clock.now
	return rl, clock
}

func TestFixedWindow(t *testing.T) {
	rl, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("u1")
		assert.True(t, ok, "hit %d", i+1)
	}
	assert.Equal(t, 0, rl.Remaining("u1"))

	clock.advance(20 * time.Second)
	ok, retry := rl.Allow("u1")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retry)

	ok, _ = rl.Allow("u2")
	assert.True(t, ok, "keys are independent")

	clock.advance(40 * time.Second)
	ok, _ = rl.Allow("u1")
	assert.True(t, ok, "new window")
	assert.Equal(t, 2, rl.Remaining("u1"))
}

func TestCleanupDropsExpiredWindows(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Minute)
	rl.Allow("a")
	clock.advance(30 * time.Second)
	rl.Allow("b")

	clock.advance(31 * time.Second)
	rl.Cleanup()
	assert.Equal(t, 1, rl.size())

	clock.advance(time.Minute)
	rl.Cleanup()
	assert.Equal(t, 0, rl.size())
}
