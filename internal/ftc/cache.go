package ftc

import (
	"context"
	"strings"
	"sync"
	"time"

	"hsr-monitor/internal/notice"
)

// MaxCacheTTL bounds how stale a cached page may be.
const MaxCacheTTL = 60 * time.Second

type cacheKey struct {
	keyword string
	date    string
	limit   int
}

type cacheEntry struct {
	notices []notice.Notice
	expires time.Time
}

// CachingFetcher memoizes successful fetches per query for a short TTL.
// Errors are never cached.
type CachingFetcher struct {
	next Fetcher
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCachingFetcher wraps next. A ttl of zero or above MaxCacheTTL uses MaxCacheTTL.
func NewCachingFetcher(next Fetcher, ttl time.Duration) *CachingFetcher {
	if ttl <= 0 || ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	return &CachingFetcher{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Fetch implements Fetcher.
func (c *CachingFetcher) Fetch(ctx context.Context, q Query) ([]notice.Notice, error) {
	key := cacheKey{keyword: strings.TrimSpace(q.Keyword), limit: q.Limit}
	if !q.Date.IsZero() {
		key.date = q.Date.Format(dateLayout)
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Before(entry.expires) {
		return cloneNotices(entry.notices), nil
	}

	notices, err := c.next.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{notices: cloneNotices(notices), expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return notices, nil
}

func cloneNotices(in []notice.Notice) []notice.Notice {
	out := make([]notice.Notice, len(in))
	copy(out, in)
	return out
}

var _ Fetcher = (*CachingFetcher)(nil)
