package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anime1local/server/internal/models"
)

type stubResolver struct {
	mu    sync.Mutex
	calls int
	video models.ResolvedVideo
	err   error
	delay time.Duration
}

func (s *stubResolver) ResolveByPostID(ctx context.Context, postID string) (models.ResolvedVideo, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return models.ResolvedVideo{}, s.err
	}
	return s.video, nil
}

func (s *stubResolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func freshVideo(url string) models.ResolvedVideo {
	return models.ResolvedVideo{URL: url, MediaType: "video/mp4", ExpiresAt: time.Now().Add(time.Hour)}
}

func TestGetOrResolveCachesResult(t *testing.T) {
	resolver := &stubResolver{video: freshVideo("http://cdn/video.mp4")}
	cache := NewResolutionCache(resolver, 8)
	ctx := context.Background()

	video, err := cache.GetOrResolve(ctx, "713")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if video.URL != "http://cdn/video.mp4" {
		t.Fatalf("unexpected video: %+v", video)
	}

	if _, err := cache.GetOrResolve(ctx, "713"); err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if resolver.callCount() != 1 {
		t.Fatalf("expected one upstream resolution got %d", resolver.callCount())
	}
}

func TestGetOrResolveExpiredEntryReResolves(t *testing.T) {
	resolver := &stubResolver{video: freshVideo("http://cdn/video.mp4")}
	cache := NewResolutionCache(resolver, 8)
	ctx := context.Background()

	if _, err := cache.GetOrResolve(ctx, "713"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Move the clock past the entry's expiry.
	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	resolver.video = models.ResolvedVideo{URL: "http://cdn/fresh.mp4", ExpiresAt: time.Now().Add(3 * time.Hour)}

	video, err := cache.GetOrResolve(ctx, "713")
	if err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if video.URL != "http://cdn/fresh.mp4" {
		t.Fatalf("expected re-resolution, got %+v", video)
	}
	if resolver.callCount() != 2 {
		t.Fatalf("expected two upstream resolutions got %d", resolver.callCount())
	}
}

func TestGetOrResolveFailureLeavesNoEntry(t *testing.T) {
	wantErr := errors.New("resolution failed")
	resolver := &stubResolver{err: wantErr}
	cache := NewResolutionCache(resolver, 8)

	if _, err := cache.GetOrResolve(context.Background(), "713"); !errors.Is(err, wantErr) {
		t.Fatalf("expected resolver error got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache got %d entries", cache.Len())
	}
}

func TestGetOrResolveSingleFlight(t *testing.T) {
	resolver := &stubResolver{video: freshVideo("http://cdn/video.mp4"), delay: 50 * time.Millisecond}
	cache := NewResolutionCache(resolver, 8)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrResolve(context.Background(), "713"); err != nil {
				t.Errorf("resolve: %v", err)
			}
		}()
	}
	wg.Wait()

	if resolver.callCount() != 1 {
		t.Fatalf("expected one shared resolution got %d", resolver.callCount())
	}
}

func TestGetOrResolveDifferentKeysProceedIndependently(t *testing.T) {
	resolver := &stubResolver{video: freshVideo("http://cdn/video.mp4")}
	cache := NewResolutionCache(resolver, 8)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cache.GetOrResolve(ctx, fmt.Sprintf("post-%d", i)); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if resolver.callCount() != 3 {
		t.Fatalf("expected three resolutions got %d", resolver.callCount())
	}
	if cache.Len() != 3 {
		t.Fatalf("expected three entries got %d", cache.Len())
	}
}

func TestSweepDropsExpiredFirst(t *testing.T) {
	resolver := &stubResolver{}
	cache := NewResolutionCache(resolver, 2)

	now := time.Now()
	cache.entries["expired"] = models.ResolvedVideo{ExpiresAt: now.Add(-time.Minute)}
	cache.entries["fresh-a"] = models.ResolvedVideo{ExpiresAt: now.Add(time.Hour)}

	cache.store("fresh-b", models.ResolvedVideo{ExpiresAt: now.Add(2 * time.Hour)})

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries after sweep got %d", cache.Len())
	}
	if _, ok := cache.entries["expired"]; ok {
		t.Fatal("expected expired entry to be swept")
	}
}

func TestSweepEvictsSoonestExpiry(t *testing.T) {
	resolver := &stubResolver{}
	cache := NewResolutionCache(resolver, 2)

	now := time.Now()
	cache.entries["soon"] = models.ResolvedVideo{ExpiresAt: now.Add(time.Minute)}
	cache.entries["later"] = models.ResolvedVideo{ExpiresAt: now.Add(time.Hour)}

	cache.store("latest", models.ResolvedVideo{ExpiresAt: now.Add(2 * time.Hour)})

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction got %d", cache.Len())
	}
	if _, ok := cache.entries["soon"]; ok {
		t.Fatal("expected soonest-expiring entry to be evicted")
	}
	if _, ok := cache.entries["later"]; !ok {
		t.Fatal("expected later entry to survive")
	}
	if _, ok := cache.entries["latest"]; !ok {
		t.Fatal("expected newest entry to survive")
	}
}
