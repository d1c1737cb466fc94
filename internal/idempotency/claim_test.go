package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClaimOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ok, err := m.Claim(ctx, "feedback:s1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Claim(ctx, "feedback:s1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = m.Claim(ctx, "feedback:s2", time.Hour)
	assert.True(t, ok, "keys are independent")
}

func TestMemoryClaimExpires(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	ok, _ := m.Claim(context.Background(), "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = m.Claim(context.Background(), "k", time.Minute)
	assert.True(t, ok)
}

func TestMemoryRelease(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Claim(ctx, "k", time.Hour)
	require.NoError(t, m.Release(ctx, "k"))

	ok, _ := m.Claim(ctx, "k", time.Hour)
	assert.True(t, ok)
}

func TestMemoryConcurrentClaims(t *testing.T) {
	m := NewMemory()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Claim(context.Background(), "k", time.Hour); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), "not a url")
	assert.Error(t, err)
}
