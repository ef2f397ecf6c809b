package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Ceiling(t *testing.T) {
	l := New(3)

	for i := 0; i < 3; i++ {
		require.True(t, l.TryAdmit("10.0.0.1"), "attempt %d", i+1)
	}
	assert.False(t, l.TryAdmit("10.0.0.1"))
	assert.Equal(t, 3, l.Count("10.0.0.1"), "rejected attempt must not be credited")

	assert.True(t, l.TryAdmit("10.0.0.2"), "addresses are independent")

	l.Release("10.0.0.1")
	assert.Equal(t, 2, l.Count("10.0.0.1"))
	assert.True(t, l.TryAdmit("10.0.0.1"))
}

func TestLimiter_DefaultCeiling(t *testing.T) {
	assert.Equal(t, DefaultMaxPerAddress, New(0).Max())
	assert.Equal(t, DefaultMaxPerAddress, New(-1).Max())
	assert.Equal(t, 7, New(7).Max())
}

func TestLimiter_ReleaseFloorsAtZero(t *testing.T) {
	l := New(2)

	l.Release("10.0.0.1")
	assert.Equal(t, 0, l.Count("10.0.0.1"))

	require.True(t, l.TryAdmit("10.0.0.1"))
	l.Release("10.0.0.1")
	l.Release("10.0.0.1")
	assert.Equal(t, 0, l.Count("10.0.0.1"))
	assert.Equal(t, 0, l.Addresses())
}

func TestLimiter_ConcurrentAdmitSameAddress(t *testing.T) {
	const max = 5
	l := New(max)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAdmit("10.0.0.1") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(max), admitted.Load())
	assert.Equal(t, max, l.Count("10.0.0.1"))
}

func TestLimiter_ConcurrentAdmitRelease(t *testing.T) {
	l := New(4)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if l.TryAdmit("10.0.0.1") {
					c := l.Count("10.0.0.1")
					assert.True(t, c >= 1 && c <= 4, "count %d out of range", c)
					l.Release("10.0.0.1")
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, l.Count("10.0.0.1"))
}
