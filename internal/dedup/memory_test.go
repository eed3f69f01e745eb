package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_ClaimOnce(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	existing, claimed, err := idx.Claim(ctx, "k", "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "evt-1", existing)

	existing, claimed, err = idx.Claim(ctx, "k", "evt-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "evt-1", existing)
}

func TestMemoryIndex_ReleaseAndExpiry(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	idx.now = func() time.Time { return now }

	_, _, _ = idx.Claim(ctx, "k", "evt-1", time.Hour)
	require.NoError(t, idx.Release(ctx, "k"))
	_, claimed, _ := idx.Claim(ctx, "k", "evt-2", time.Hour)
	assert.True(t, claimed)

	now = now.Add(2 * time.Hour)
	existing, claimed, _ := idx.Claim(ctx, "k", "evt-3", time.Hour)
	assert.True(t, claimed)
	assert.Equal(t, "evt-3", existing)
}

func TestMemoryIndex_ConcurrentClaims(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, claimed, _ := idx.Claim(ctx, "k", "evt", time.Hour); claimed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
