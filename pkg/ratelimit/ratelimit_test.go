package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllow(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(time.Minute, 2)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "third hit inside the window is rejected")
	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")

	clock = clock.Add(61 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "old hits leave the window")
}

func TestLimiterRemaining(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(time.Minute, 3)
	l.now = func() time.Time { return clock }

	assert.Equal(t, 3, l.Remaining("client"))
	l.Allow("client")
	assert.Equal(t, 2, l.Remaining("client"))

	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 3, l.Remaining("client"))
	assert.Empty(t, l.hits, "expired keys are dropped")
}
