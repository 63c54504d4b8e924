package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"pharmacy-guard-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatchRepositoryExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewLatchRepository()
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	st, err := repo.Get(ctx, "mount-1")
	require.NoError(t, err)
	assert.Nil(t, st)

	ok, err := repo.CompareAndSwap(ctx, "mount-1", nil, &domain.LatchState{Status: domain.LatchRedirected, Fingerprint: "abc", Target: "/login"}, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	st, err = repo.Get(ctx, "mount-1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, domain.LatchRedirected, st.Status)
	assert.Equal(t, "/login", st.Target)
	assert.Equal(t, time.Minute, repo.TTL(ctx, "mount-1"))

	now = now.Add(2 * time.Minute)
	st, err = repo.Get(ctx, "mount-1")
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Zero(t, repo.TTL(ctx, "mount-1"))
}

func TestLatchRepositoryCompareAndSwap(t *testing.T) {
	repo := NewLatchRepository()
	ctx := context.Background()
	idle := &domain.LatchState{Status: domain.LatchIdle, Fingerprint: "f1"}
	redirected := &domain.LatchState{Status: domain.LatchRedirected, Fingerprint: "f1", Target: "/login"}

	ok, err := repo.CompareAndSwap(ctx, "m", nil, idle, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// A writer that still believes the mount is empty loses.
	ok, err = repo.CompareAndSwap(ctx, "m", nil, redirected, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompareAndSwap(ctx, "m", idle, redirected, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	st, _ := repo.Get(ctx, "m")
	assert.Equal(t, domain.LatchRedirected, st.Status)
}

func TestLatchRepositoryConcurrentSwapHasOneWinner(t *testing.T) {
	repo := NewLatchRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.CompareAndSwap(ctx, "m", nil, &domain.LatchState{Status: domain.LatchRedirected, Fingerprint: "f"}, time.Minute)
			assert.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for ok := range wins {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestLatchRepositoryClearAndSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewLatchRepository()
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := repo.CompareAndSwap(ctx, "a", nil, &domain.LatchState{Status: domain.LatchIdle}, time.Minute)
	require.NoError(t, err)
	_, err = repo.CompareAndSwap(ctx, "b", nil, &domain.LatchState{Status: domain.LatchIdle}, time.Hour)
	require.NoError(t, err)

	require.NoError(t, repo.Clear(ctx, "b"))
	st, _ := repo.Get(ctx, "b")
	assert.Nil(t, st)

	now = now.Add(5 * time.Minute)
	repo.sweep()
	_, ok := repo.entries["a"]
	assert.False(t, ok)
}
