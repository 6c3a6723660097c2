package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/newsgate/internal/services/web/component/newslist"
	webstorage "github.com/louisbranch/newsgate/internal/services/web/storage"
)

// CacheScope labels feed rows in the cache table.
const CacheScope = "news_feed"

// DefaultCacheTTL is used when no TTL is configured.
const DefaultCacheTTL = 10 * time.Minute

// CachedSource serves articles from the cache table until they expire.
type CachedSource struct {
	next  newslist.Source
	cache webstorage.CacheStore
	key   string
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedSource wraps next. cacheID distinguishes feeds sharing one cache.
func NewCachedSource(next newslist.Source, cache webstorage.CacheStore, cacheID string, ttl time.Duration) (*CachedSource, error) {
	if next == nil {
		return nil, errors.New("feed source is required")
	}
	if cache == nil {
		return nil, errors.New("cache store is required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{next: next, cache: cache, key: CacheKey(cacheID), ttl: ttl, now: time.Now}, nil
}

// CacheKey derives the cache row key for a feed id.
func CacheKey(cacheID string) string {
	sum := sha256.Sum256([]byte(cacheID))
	return "feed:" + hex.EncodeToString(sum[:8])
}

// Fetch returns cached articles while fresh, otherwise refreshes from next.
// Cache read and write failures fall through to the upstream result.
func (s *CachedSource) Fetch(ctx context.Context) ([]newslist.Article, error) {
	now := s.now().UTC()
	if entry, ok, err := s.cache.GetCacheEntry(ctx, s.key); err == nil && ok && entry.Fresh(now) {
		var articles []newslist.Article
		if err := json.Unmarshal(entry.PayloadBytes, &articles); err == nil {
			return articles, nil
		}
	}

	articles, err := s.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	// Best effort: a failed write still returns the fresh articles.
	_ = s.store(ctx, articles, now)
	return articles, nil
}

func (s *CachedSource) store(ctx context.Context, articles []newslist.Article, now time.Time) error {
	if articles == nil {
		articles = []newslist.Article{}
	}
	payload, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("encode feed cache: %w", err)
	}
	if err := s.cache.PutCacheEntry(ctx, webstorage.CacheEntry{
		CacheKey:     s.key,
		Scope:        CacheScope,
		PayloadBytes: payload,
		RefreshedAt:  now,
		ExpiresAt:    now.Add(s.ttl),
	}); err != nil {
		return err
	}
	_, err = s.cache.DeleteExpiredCacheEntries(ctx, now)
	return err
}
