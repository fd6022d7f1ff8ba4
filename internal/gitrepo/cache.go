package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Sentinel errors for handle resolution. Callers classify with errors.Is.
var (
	ErrRepoNotConfigured = errors.New("project has no repository path configured")
	ErrRepoNotFound      = errors.New("repository path does not exist")
	ErrNotARepository    = errors.New("path is not a git repository")
)

// ProjectRegistry resolves a project id to its local repository path.
type ProjectRegistry interface {
	RepoPath(projectID string) (string, bool)
}

// CacheOptions tunes handle construction.
type CacheOptions struct {
	CommandTimeout time.Duration
	// CommandsPerSecond caps git subprocess spawns per handle. Zero
	// disables the limiter.
	CommandsPerSecond float64
}

// Cache is the process-local registry of repository handles, keyed by
// project id. Handles are created lazily; concurrent lookups for the same
// project share a single construction.
type Cache struct {
	registry ProjectRegistry
	opts     CacheOptions
	logger   *logrus.Logger

	mu      sync.RWMutex
	handles map[string]*Handle
	group   singleflight.Group

	// verify is swapped out in tests to avoid spawning git.
	verify func(ctx context.Context, path string) error
}

// NewCache builds a handle cache over a project registry.
func NewCache(registry ProjectRegistry, opts CacheOptions, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
	}
	return &Cache{
		registry: registry,
		opts:     opts,
		logger:   logger,
		handles:  make(map[string]*Handle),
		verify:   verifyRepository,
	}
}

// Get returns the cached handle for a project, constructing and caching
// one on miss. Construction for the same key is deduplicated.
func (c *Cache) Get(ctx context.Context, projectID string) (*Handle, error) {
	c.mu.RLock()
	h, ok := c.handles[projectID]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := c.group.Do(projectID, func() (interface{}, error) {
		// Re-check under the group: another caller may have populated
		// the cache between the RLock and Do.
		c.mu.RLock()
		cached, ok := c.handles[projectID]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		handle, err := c.build(ctx, projectID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.handles[projectID] = handle
		c.mu.Unlock()

		c.logger.WithFields(logrus.Fields{
			"project": projectID,
			"path":    handle.Path(),
		}).Debug("repository handle created")

		return handle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (c *Cache) build(ctx context.Context, projectID string) (*Handle, error) {
	path, ok := c.registry.RepoPath(projectID)
	if !ok || path == "" {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrRepoNotConfigured)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project %s at %s: %w", projectID, path, ErrRepoNotFound)
	}

	if err := c.verify(ctx, path); err != nil {
		return nil, fmt.Errorf("project %s at %s: %w", projectID, path, ErrNotARepository)
	}

	var limiter *rate.Limiter
	if c.opts.CommandsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.opts.CommandsPerSecond), 1)
	}
	return NewHandle(projectID, path, c.opts.CommandTimeout, limiter), nil
}

// Invalidate drops a project's cached handle, e.g. after detected
// repository corruption.
func (c *Cache) Invalidate(projectID string) {
	c.mu.Lock()
	delete(c.handles, projectID)
	c.mu.Unlock()
}

// Clear drops every cached handle.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.handles = make(map[string]*Handle)
	c.mu.Unlock()
}

// verifyRepository checks that the path is inside a git working tree.
func verifyRepository(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = path
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}
	return nil
}
