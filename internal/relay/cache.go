package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anime1local/server/internal/models"
)

// Resolver performs the two-step post-id to backing-URL resolution.
type Resolver interface {
	ResolveByPostID(ctx context.Context, postID string) (models.ResolvedVideo, error)
}

// DefaultCacheLimit bounds the resolution table size before a sweep runs.
const DefaultCacheLimit = 128

// ResolutionCache maps post ids to their resolved backing URLs, re-resolving
// once an entry's expiry passes. Concurrent misses for the same post are
// collapsed into a single upstream resolution.
type ResolutionCache struct {
	resolver Resolver
	limit    int
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]models.ResolvedVideo
}

// NewResolutionCache returns a cache that resolves misses through the
// provided resolver and keeps at most limit entries.
func NewResolutionCache(resolver Resolver, limit int) *ResolutionCache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &ResolutionCache{
		resolver: resolver,
		limit:    limit,
		now:      time.Now,
		entries:  make(map[string]models.ResolvedVideo),
	}
}

// GetOrResolve returns the cached resolution for a post, resolving upstream
// when the entry is absent or expired. Failed resolutions leave no entry.
func (c *ResolutionCache) GetOrResolve(ctx context.Context, postID string) (models.ResolvedVideo, error) {
	if video, ok := c.lookup(postID); ok {
		return video, nil
	}

	result, err, _ := c.group.Do(postID, func() (any, error) {
		// A flight that finished while we were queued may have stored a
		// still-fresh entry.
		if video, ok := c.lookup(postID); ok {
			return video, nil
		}
		video, err := c.resolver.ResolveByPostID(ctx, postID)
		if err != nil {
			return nil, err
		}
		c.store(postID, video)
		return video, nil
	})
	if err != nil {
		return models.ResolvedVideo{}, err
	}
	return result.(models.ResolvedVideo), nil
}

// Len reports the current number of cached entries.
func (c *ResolutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResolutionCache) lookup(postID string) (models.ResolvedVideo, bool) {
	now := c.now()

	c.mu.RLock()
	video, ok := c.entries[postID]
	c.mu.RUnlock()
	if !ok {
		return models.ResolvedVideo{}, false
	}
	if video.Expired(now) {
		c.mu.Lock()
		// Re-check: another goroutine may have refreshed it meanwhile.
		if current, stillThere := c.entries[postID]; stillThere && current.Expired(now) {
			delete(c.entries, postID)
		}
		c.mu.Unlock()
		return models.ResolvedVideo{}, false
	}
	return video, true
}

func (c *ResolutionCache) store(postID string, video models.ResolvedVideo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[postID] = video
	if len(c.entries) > c.limit {
		c.sweepLocked()
	}
}

// sweepLocked drops expired entries first; if the table is still over the
// limit it evicts the entries closest to expiry until it fits. Entries about
// to expire are the cheapest to lose since their next request would have
// re-resolved anyway.
func (c *ResolutionCache) sweepLocked() {
	now := c.now()
	for id, video := range c.entries {
		if video.Expired(now) {
			delete(c.entries, id)
		}
	}
	if len(c.entries) <= c.limit {
		return
	}

	type aging struct {
		id        string
		expiresAt time.Time
	}
	remaining := make([]aging, 0, len(c.entries))
	for id, video := range c.entries {
		remaining = append(remaining, aging{id: id, expiresAt: video.ExpiresAt})
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].expiresAt.Before(remaining[j].expiresAt) })
	for _, candidate := range remaining[:len(c.entries)-c.limit] {
		delete(c.entries, candidate.id)
	}
}
