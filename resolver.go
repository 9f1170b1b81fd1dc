package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/prismic"
)

// Seeder fetches the first page of a document type.
type Seeder interface {
	GetByType(ctx context.Context, typeName string, opts prismic.QueryOptions) (*prismic.Response, error)
}

// DetailFetcher fetches one document by uid.
type DetailFetcher interface {
	GetByUID(ctx context.Context, typeName, uid string) (*prismic.Document, error)
}

// ResolutionState tells the post handler what to render.
type ResolutionState int

const (
	// Resolved means Post is ready to render.
	Resolved ResolutionState = iota
	// Pending means the post is being fetched; show the placeholder.
	Pending
	// NotFound means the CMS has no post with that slug.
	NotFound
)

func (s ResolutionState) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Pending:
		return "pending"
	case NotFound:
		return "not found"
	}
	return fmt.Sprintf("ResolutionState(%d)", int(s))
}

// Resolution is the outcome of resolving a post slug.
type Resolution struct {
	State ResolutionState
	Post  post.Detail
}

// resolver turns slugs into posts. Eager slugs are fetched while the caller
// waits; any other slug waits at most fallbackWait and otherwise answers
// Pending while the fetch continues in the background. Concurrent requests
// for one slug share a single fetch.
type resolver struct {
	content      ContentClient
	cache        *PageCache
	store        *Store
	log          *slog.Logger
	eager        map[string]bool
	pageSize     int
	fallbackWait time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	group singleflight.Group
}

func newResolver(a *App) *resolver {
	eager := make(map[string]bool, len(a.Config.EagerSlugs))
	for _, slug := range a.Config.EagerSlugs {
		eager[slug] = true
	}
	return &resolver{
		content:      a.content,
		cache:        a.Cache,
		store:        a.Store,
		log:          a.log,
		eager:        eager,
		pageSize:     a.Config.PageSize,
		fallbackWait: a.Config.FallbackWait,
		fetchTimeout: a.Config.FetchTimeout,
		now:          time.Now,
	}
}

// IsEager reports whether slug is generated ahead of requests.
func (r *resolver) IsEager(slug string) bool {
	return r.eager[slug]
}

// Resolve looks slug up in the cache, then in the store, and finally asks
// the CMS. Stale pages are served while a refresh runs in the background.
// Errors other than a missing post are returned as is.
func (r *resolver) Resolve(ctx context.Context, slug string) (Resolution, error) {
	if d, fresh, ok := r.cache.Detail(slug); ok {
		if !fresh {
			r.refresh(ctx, slug)
		}
		return Resolution{State: Resolved, Post: d}, nil
	}

	d, generated, err := r.store.GetPost(ctx, slug)
	switch {
	case err == nil:
		r.cache.PutDetail(d, generated)
		if _, fresh, _ := r.cache.Detail(slug); !fresh {
			r.refresh(ctx, slug)
		}
		return Resolution{State: Resolved, Post: d}, nil
	case !errors.Is(err, ErrNotFound):
		r.log.WarnContext(ctx, "read post snapshot", "slug", slug, "error", err)
	}

	ch := r.group.DoChan(slug, func() (any, error) {
		return r.fetch(ctx, slug)
	})

	var timeout <-chan time.Time
	if !r.IsEager(slug) {
		t := time.NewTimer(r.fallbackWait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, prismic.ErrNotFound) {
				return Resolution{State: NotFound}, nil
			}
			return Resolution{}, res.Err
		}
		return Resolution{State: Resolved, Post: res.Val.(post.Detail)}, nil
	case <-timeout:
		r.log.InfoContext(ctx, "post still resolving", "slug", slug)
		return Resolution{State: Pending}, nil
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	}
}

// refresh starts a background refetch of slug unless one is running.
func (r *resolver) refresh(ctx context.Context, slug string) {
	r.group.DoChan(slug, func() (any, error) {
		d, err := r.fetch(ctx, slug)
		if err != nil {
			r.log.WarnContext(ctx, "refresh post", "slug", slug, "error", err)
		}
		return d, err
	})
}

// fetch runs detached from the request so a visitor giving up does not
// cancel the fetch other visitors are waiting on.
func (r *resolver) fetch(parent context.Context, slug string) (post.Detail, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.fetchTimeout)
	defer cancel()

	doc, err := r.content.GetByUID(ctx, post.TypeName, slug)
	if err != nil {
		return post.Detail{}, err
	}
	d, err := post.FromDocument(*doc)
	if err != nil {
		return post.Detail{}, err
	}
	if d.UID == "" {
		d.UID = slug
	}
	generated := r.now()
	r.cache.PutDetail(d, generated)
	if err := r.store.SavePost(ctx, d, generated); err != nil {
		r.log.WarnContext(ctx, "save post snapshot", "slug", slug, "error", err)
	}
	r.log.InfoContext(ctx, "post generated", "slug", slug, "eager", r.IsEager(slug))
	return d, nil
}

// Listing returns the listing seed.
func (r *resolver) Listing(ctx context.Context) (listing.State, error) {
	return r.cache.Listing(ctx, r.loadListing)
}

// loadListing prefers a fresh stored seed, then the CMS. When the CMS fails
// a stale stored seed is better than an error page.
func (r *resolver) loadListing(ctx context.Context) (listing.State, time.Time, error) {
	stored, generated, err := r.store.GetListing(ctx)
	haveStored := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.log.WarnContext(ctx, "read listing snapshot", "error", err)
	}
	if haveStored && r.now().Sub(generated) < r.cache.ttl {
		return stored, generated, nil
	}

	st, err := r.seedListing(ctx)
	if err != nil {
		if haveStored {
			r.log.WarnContext(ctx, "seed listing, serving stale snapshot", "error", err)
			return stored, generated, nil
		}
		return listing.State{}, time.Time{}, err
	}
	generated = r.now()
	if err := r.store.SaveListing(ctx, st, generated); err != nil {
		r.log.WarnContext(ctx, "save listing snapshot", "error", err)
	}
	return st, generated, nil
}

func (r *resolver) seedListing(ctx context.Context) (listing.State, error) {
	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	resp, err := r.content.GetByType(ctx, post.TypeName, prismic.QueryOptions{PageSize: r.pageSize})
	if err != nil {
		return listing.State{}, fmt.Errorf("seed listing: %w", err)
	}
	st, err := listing.Seed(resp)
	if err != nil {
		return listing.State{}, err
	}
	r.log.InfoContext(ctx, "listing generated", "items", len(st.Items), "more", st.CanLoadMore())
	return st, nil
}
