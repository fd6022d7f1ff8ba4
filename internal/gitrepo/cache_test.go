package gitrepo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapRegistry map[string]string

func (m mapRegistry) RepoPath(projectID string) (string, bool) {
	p, ok := m[projectID]
	return p, ok
}

func newTestCache(t *testing.T, registry ProjectRegistry) *Cache {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := NewCache(registry, CacheOptions{}, logger)
	c.verify = func(ctx context.Context, path string) error { return nil }
	return c
}

func TestCacheGet(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, mapRegistry{"proj-1": dir})

	h, err := c.Get(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, dir, h.Path())

	// Second lookup returns the same handle.
	h2, err := c.Get(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Same(t, h, h2)
}

func TestCacheErrors(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, mapRegistry{"ok": dir, "missing": dir + "/nope"})

	_, err := c.Get(context.Background(), "unknown")
	assert.True(t, errors.Is(err, ErrRepoNotConfigured))

	_, err = c.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRepoNotFound))

	c.verify = func(ctx context.Context, path string) error {
		return errors.New("corrupt")
	}
	_, err = c.Get(context.Background(), "ok")
	assert.True(t, errors.Is(err, ErrNotARepository))
}

func TestCacheInvalidate(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, mapRegistry{"proj-1": dir})

	h, err := c.Get(context.Background(), "proj-1")
	require.NoError(t, err)

	c.Invalidate("proj-1")
	h2, err := c.Get(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.NotSame(t, h, h2)

	c.Clear()
	h3, err := c.Get(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.NotSame(t, h2, h3)
}

func TestCacheConcurrentSameKey(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, mapRegistry{"proj-1": dir})

	var verifications atomic.Int32
	var release sync.WaitGroup
	release.Add(1)
	c.verify = func(ctx context.Context, path string) error {
		verifications.Add(1)
		release.Wait() // hold every racer inside construction
		return nil
	}

	const racers = 8
	handles := make([]*Handle, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := c.Get(context.Background(), "proj-1")
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}

	// Give the racers a moment to pile onto the singleflight group,
	// then let construction finish.
	release.Done()
	wg.Wait()

	assert.Equal(t, int32(1), verifications.Load(), "construction should run once")
	for i := 1; i < racers; i++ {
		assert.Same(t, handles[0], handles[i])
	}
}
