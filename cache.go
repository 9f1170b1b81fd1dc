package spacetraveling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/post"
)

// PageCache is an in-memory cache of generated pages: the listing seed and
// every resolved post. Entries older than ttl are stale but still served
// until something replaces them.
type PageCache struct {
	mu        sync.RWMutex
	listing   *cachedListing
	details   map[string]cachedDetail
	ttl       time.Duration
	listingMu sync.Mutex // serializes listing loads
	now       func() time.Time
}

type cachedListing struct {
	state     listing.State
	generated time.Time
}

type cachedDetail struct {
	post      post.Detail
	generated time.Time
}

// ListingLoader produces a listing seed and the time it was generated.
type ListingLoader func(ctx context.Context) (listing.State, time.Time, error)

// NewPageCache creates an empty PageCache.
func NewPageCache(ttl time.Duration) *PageCache {
	return &PageCache{
		details: make(map[string]cachedDetail),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *PageCache) fresh(generated time.Time) bool {
	return c.now().Sub(generated) < c.ttl
}

func (c *PageCache) listingValid() bool {
	return c.listing != nil && c.fresh(c.listing.generated)
}

// Listing returns the cached listing seed, calling load when it is missing
// or stale. It tries a read lock first; concurrent reloads are collapsed so
// only one caller runs load.
func (c *PageCache) Listing(ctx context.Context, load ListingLoader) (listing.State, error) {
	c.mu.RLock()
	if c.listingValid() {
		st := c.listing.state
		c.mu.RUnlock()
		return st, nil
	}
	c.mu.RUnlock()

	c.listingMu.Lock()
	defer c.listingMu.Unlock()

	c.mu.RLock()
	if c.listingValid() {
		st := c.listing.state
		c.mu.RUnlock()
		return st, nil
	}
	c.mu.RUnlock()

	st, generated, err := load(ctx)
	if err != nil {
		return listing.State{}, err
	}
	c.PutListing(st, generated)
	return st, nil
}

// PutListing replaces the cached listing seed.
func (c *PageCache) PutListing(st listing.State, generated time.Time) {
	c.mu.Lock()
	c.listing = &cachedListing{state: st, generated: generated}
	c.mu.Unlock()
}

// InvalidateListing clears the listing so the next read triggers a fresh load.
func (c *PageCache) InvalidateListing() {
	c.mu.Lock()
	c.listing = nil
	c.mu.Unlock()
}

// Detail returns a cached post. fresh is false once the entry outlived the
// ttl; ok is false when the slug was never cached.
func (c *PageCache) Detail(slug string) (d post.Detail, fresh, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.details[slug]
	if !ok {
		return post.Detail{}, false, false
	}
	return e.post, c.fresh(e.generated), true
}

// PutDetail stores a resolved post under its uid.
func (c *PageCache) PutDetail(d post.Detail, generated time.Time) {
	c.mu.Lock()
	c.details[d.UID] = cachedDetail{post: d, generated: generated}
	c.mu.Unlock()
}

// InvalidateDetail drops one post.
func (c *PageCache) InvalidateDetail(slug string) {
	c.mu.Lock()
	delete(c.details, slug)
	c.mu.Unlock()
}

// Summaries returns the summaries of every cached post, newest first. Posts
// without a publication date sort last.
func (c *PageCache) Summaries() []post.Summary {
	c.mu.RLock()
	out := make([]post.Summary, 0, len(c.details))
	for _, e := range c.details {
		out = append(out, e.post.Summary())
	}
	c.mu.RUnlock()
	sortSummaries(out)
	return out
}

func sortSummaries(s []post.Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i].PublishedAt, s[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return s[i].ID < s[j].ID
		default:
			return a.After(*b)
		}
	})
}
