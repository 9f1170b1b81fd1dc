package listing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/prismic"
)

type fakeFetcher struct {
	pages map[string]*prismic.Response
	calls []string
}

func (f *fakeFetcher) FetchPage(_ context.Context, pageURL string) (*prismic.Response, error) {
	f.calls = append(f.calls, pageURL)
	resp, ok := f.pages[pageURL]
	if !ok {
		return nil, errors.New("unexpected url " + pageURL)
	}
	return resp, nil
}

func strPtr(s string) *string { return &s }

func doc(uid string) prismic.Document {
	data, _ := json.Marshal(map[string]string{"title": "Title " + uid, "subtitle": "Sub " + uid, "author": "Author"})
	return prismic.Document{UID: uid, Type: post.TypeName, FirstPublicationDate: strPtr("2023-03-15T00:00:00+0000"), Data: data}
}

func page(next *string, uids ...string) *prismic.Response {
	resp := &prismic.Response{NextPage: next}
	for _, uid := range uids {
		resp.Results = append(resp.Results, doc(uid))
	}
	return resp
}

func ids(s State) []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.ID
	}
	return out
}

// TestScenario_LoadMoreUntilExhausted verifies the seed shows one item with
// load-more offered, and one load-more reaches the terminal state
func TestScenario_LoadMoreUntilExhausted(t *testing.T) {
	seed, err := Seed(page(strPtr("https://api/page2"), "p1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(seed))
	assert.True(t, seed.CanLoadMore())

	f := &fakeFetcher{pages: map[string]*prismic.Response{
		"https://api/page2": page(nil, "p2"),
	}}
	next, err := seed.LoadMore(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, ids(next))
	assert.False(t, next.CanLoadMore())
	assert.Nil(t, next.Cursor)
	assert.Equal(t, []string{"https://api/page2"}, f.calls)
}

// TestApply_TakesOnlyFirstResult verifies a multi-result page grows items by one
func TestApply_TakesOnlyFirstResult(t *testing.T) {
	s := State{Cursor: strPtr("c1"), Items: []post.Summary{{ID: "p1"}}}

	next, err := s.Apply(page(strPtr("c2"), "p2", "p3", "p4"))
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, ids(next))
	require.NotNil(t, next.Cursor)
	assert.Equal(t, "c2", *next.Cursor)
}

// TestApply_DoesNotMutate verifies the previous state is left untouched
func TestApply_DoesNotMutate(t *testing.T) {
	items := make([]post.Summary, 1, 10)
	items[0] = post.Summary{ID: "p1"}
	s := State{Cursor: strPtr("c1"), Items: items}

	a, err := s.Apply(page(strPtr("c2"), "a"))
	require.NoError(t, err)
	b, err := s.Apply(page(strPtr("c3"), "b"))
	require.NoError(t, err)

	assert.Equal(t, []string{"p1"}, ids(s))
	assert.Equal(t, "c1", *s.Cursor)
	assert.Equal(t, []string{"p1", "a"}, ids(a))
	assert.Equal(t, []string{"p1", "b"}, ids(b))
}

// TestApply_EmptyPage verifies an empty page only replaces the cursor
func TestApply_EmptyPage(t *testing.T) {
	s := State{Cursor: strPtr("c1"), Items: []post.Summary{{ID: "p1"}}}
	next, err := s.Apply(page(strPtr("c2")))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(next))
	assert.Equal(t, "c2", *next.Cursor)
}

// TestLoadMore_GrowsByOne verifies every load-more on a non-nil cursor adds
// exactly one item and takes the fetched cursor
func TestLoadMore_GrowsByOne(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*prismic.Response{
		"u2": page(strPtr("u3"), "p2", "x"),
		"u3": page(strPtr("u4"), "p3"),
		"u4": page(nil, "p4", "y", "z"),
	}}
	s, err := Seed(page(strPtr("u2"), "p1"))
	require.NoError(t, err)

	for s.CanLoadMore() {
		before := len(s.Items)
		s, err = s.LoadMore(context.Background(), f)
		require.NoError(t, err)
		assert.Len(t, s.Items, before+1)
	}
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(s))
}

// TestLoadMore_Exhausted verifies a nil cursor never fetches
func TestLoadMore_Exhausted(t *testing.T) {
	f := &fakeFetcher{}
	s := State{Items: []post.Summary{{ID: "p1"}}}

	assert.False(t, s.CanLoadMore())
	got, err := s.LoadMore(context.Background(), f)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, s, got)
	assert.Empty(t, f.calls)
}

// TestLoadMore_FetchError verifies a failed fetch leaves the state unchanged
func TestLoadMore_FetchError(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*prismic.Response{}}
	s := State{Cursor: strPtr("broken"), Items: []post.Summary{{ID: "p1"}}}

	got, err := s.LoadMore(context.Background(), f)
	assert.Error(t, err)
	assert.Equal(t, s, got)
}

func TestSeed_KeepsWholeFirstPage(t *testing.T) {
	s, err := Seed(page(nil, "p1", "p2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(s))
	assert.False(t, s.CanLoadMore())
}

// blockingFetcher holds every fetch until release is closed.
type blockingFetcher struct {
	started chan string
	release chan struct{}
	pages   map[string]*prismic.Response
}

func (f *blockingFetcher) FetchPage(_ context.Context, pageURL string) (*prismic.Response, error) {
	f.started <- pageURL
	<-f.release
	return f.pages[pageURL], nil
}

// TestLoader_OverlappingTriggers verifies overlapping load-more calls both
// append and the last completion sets the cursor
func TestLoader_OverlappingTriggers(t *testing.T) {
	f := &blockingFetcher{
		started: make(chan string, 2),
		release: make(chan struct{}),
		pages:   map[string]*prismic.Response{"u2": page(strPtr("u3"), "p2")},
	}
	seed, err := Seed(page(strPtr("u2"), "p1"))
	require.NoError(t, err)
	l := NewLoader(seed, f)
	assert.Equal(t, Idle, l.Status())

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := l.LoadMore(context.Background())
			done <- err
		}()
	}
	assert.Equal(t, "u2", <-f.started)
	assert.Equal(t, "u2", <-f.started)
	assert.Equal(t, Loading, l.Status())

	close(f.release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	final := l.State()
	assert.Equal(t, []string{"p1", "p2", "p2"}, ids(final))
	assert.Equal(t, "u3", *final.Cursor)
	assert.Equal(t, Idle, l.Status())
}

func TestLoader_Sequential(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*prismic.Response{"u2": page(nil, "p2")}}
	seed, err := Seed(page(strPtr("u2"), "p1"))
	require.NoError(t, err)
	l := NewLoader(seed, f)

	s, err := l.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(s))

	_, err = l.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, "idle", l.Status().String())
}
