// Package listing implements the incremental "load more" flow of the post
// listing: a seed page plus a continuation cursor, extended one post at a
// time.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/prismic"
)

// ErrExhausted is returned by LoadMore when the cursor is nil.
var ErrExhausted = errors.New("listing: no more pages")

// Fetcher follows a continuation URL. *prismic.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*prismic.Response, error)
}

// State is the listing as a reader sees it. Items only ever grow at the end
// and Cursor is replaced as a whole on each fetch. A State is never mutated;
// updates return a new one.
type State struct {
	Cursor *string
	Items  []post.Summary
}

// Seed builds the initial state from the first page: every result of that
// page plus its cursor.
func Seed(resp *prismic.Response) (State, error) {
	items, err := post.SummariesFromResponse(resp)
	if err != nil {
		return State{}, fmt.Errorf("seed listing: %w", err)
	}
	return State{Cursor: copyCursor(resp.NextPage), Items: items}, nil
}

// CanLoadMore reports whether the load-more action should be offered.
func (s State) CanLoadMore() bool {
	return s.Cursor != nil && *s.Cursor != ""
}

// Apply folds a fetched continuation page into s. Only the first result of
// the page is appended; the cursor becomes the page's next_page.
func (s State) Apply(resp *prismic.Response) (State, error) {
	items := make([]post.Summary, len(s.Items), len(s.Items)+1)
	copy(items, s.Items)

	if len(resp.Results) > 0 {
		item, err := post.SummaryFromDocument(resp.Results[0])
		if err != nil {
			return s, fmt.Errorf("apply page: %w", err)
		}
		items = append(items, item)
	}
	return State{Cursor: copyCursor(resp.NextPage), Items: items}, nil
}

// LoadMore fetches the page at s.Cursor and returns the updated state. On
// error s is returned unchanged.
func (s State) LoadMore(ctx context.Context, f Fetcher) (State, error) {
	if !s.CanLoadMore() {
		return s, ErrExhausted
	}
	resp, err := f.FetchPage(ctx, *s.Cursor)
	if err != nil {
		return s, fmt.Errorf("load more: %w", err)
	}
	return s.Apply(resp)
}

func copyCursor(c *string) *string {
	if c == nil || *c == "" {
		return nil
	}
	v := *c
	return &v
}

// Status of a Loader.
type Status int

const (
	Idle Status = iota
	Loading
)

func (s Status) String() string {
	if s == Loading {
		return "loading"
	}
	return "idle"
}

// Loader holds one reader's listing state across load-more triggers.
//
// Triggers are not serialized: each call captures the cursor current when it
// starts, and on completion appends to whatever state is current then and
// overwrites the cursor. Overlapping calls can therefore append the same post
// twice or out of order, and the last one to finish decides the cursor.
type Loader struct {
	mu       sync.Mutex
	state    State
	inflight int
	fetcher  Fetcher
}

// NewLoader returns an idle Loader seeded with seed.
func NewLoader(seed State, f Fetcher) *Loader {
	return &Loader{state: seed, fetcher: f}
}

// State returns the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status reports Loading while at least one fetch is in flight.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight > 0 {
		return Loading
	}
	return Idle
}

// LoadMore runs one load-more trigger and returns the state after it.
func (l *Loader) LoadMore(ctx context.Context) (State, error) {
	l.mu.Lock()
	start := l.state
	if !start.CanLoadMore() {
		l.mu.Unlock()
		return start, ErrExhausted
	}
	l.inflight++
	l.mu.Unlock()

	resp, err := l.fetcher.FetchPage(ctx, *start.Cursor)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	if err != nil {
		return l.state, fmt.Errorf("load more: %w", err)
	}
	next, err := l.state.Apply(resp)
	if err != nil {
		return l.state, err
	}
	l.state = next
	return next, nil
}
