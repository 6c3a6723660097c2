package feed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/newsgate/internal/services/web/component/newslist"
	"github.com/louisbranch/newsgate/internal/services/web/storage/sqlite"
)

type countingSource struct {
	calls    int
	articles []newslist.Article
	err      error
}

func (s *countingSource) Fetch(context.Context) ([]newslist.Article, error) {
	s.calls++
	return s.articles, s.err
}

func newCachedSource(t *testing.T, next newslist.Source, now *time.Time) *CachedSource {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cached, err := NewCachedSource(next, store, "https://example.com/feed.xml", time.Minute)
	if err != nil {
		t.Fatalf("new cached source: %v", err)
	}
	cached.now = func() time.Time { return *now }
	return cached
}

func TestCachedSourceServesFreshEntries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	upstream := &countingSource{articles: []newslist.Article{
		{Title: "B", Link: "https://example.com/b"},
		{Title: "A", Link: "https://example.com/a"},
	}}
	cached := newCachedSource(t, upstream, &now)

	for i := 0; i < 2; i++ {
		articles, err := cached.Fetch(context.Background())
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(articles) != 2 || articles[0].Title != "B" {
			t.Fatalf("fetch %d articles = %+v", i, articles)
		}
	}
	if upstream.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", upstream.calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cached.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if upstream.calls != 2 {
		t.Fatalf("upstream calls = %d, want 2", upstream.calls)
	}
}

func TestCachedSourceCachesEmptyFeed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	upstream := &countingSource{}
	cached := newCachedSource(t, upstream, &now)
	for i := 0; i < 2; i++ {
		if _, err := cached.Fetch(context.Background()); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if upstream.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", upstream.calls)
	}
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	upstream := &countingSource{err: errors.New("timeout")}
	cached := newCachedSource(t, upstream, &now)

	for i := 0; i < 2; i++ {
		if _, err := cached.Fetch(context.Background()); !errors.Is(err, upstream.err) {
			t.Fatalf("fetch error = %v, want %v", err, upstream.err)
		}
	}
	if upstream.calls != 2 {
		t.Fatalf("upstream calls = %d, want 2", upstream.calls)
	}
}

func TestCacheKeyIsStable(t *testing.T) {
	t.Parallel()

	if CacheKey("a") != CacheKey("a") || CacheKey("a") == CacheKey("b") {
		t.Fatal("unexpected cache key derivation")
	}
}
