package spacetraveling

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eringen/spacetraveling/prismic"
)

const fakeAPI = "https://repo.cdn.prismic.io/api/v2"

// fakeContent is an in-memory CMS.
type fakeContent struct {
	mu       sync.Mutex
	first    *prismic.Response
	firstErr error
	pages    map[string]*prismic.Response
	docs     map[string]prismic.Document
	errs     map[string]error
	block    map[string]chan struct{}
	started  chan string

	typeCalls int
	uidCalls  map[string]int
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		pages:    map[string]*prismic.Response{},
		docs:     map[string]prismic.Document{},
		errs:     map[string]error{},
		block:    map[string]chan struct{}{},
		started:  make(chan string, 16),
		uidCalls: map[string]int{},
	}
}

func (f *fakeContent) GetByType(_ context.Context, _ string, _ prismic.QueryOptions) (*prismic.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typeCalls++
	if f.firstErr != nil {
		return nil, f.firstErr
	}
	return f.first, nil
}

func (f *fakeContent) GetByUID(ctx context.Context, _ string, uid string) (*prismic.Document, error) {
	f.mu.Lock()
	f.uidCalls[uid]++
	wait := f.block[uid]
	f.mu.Unlock()

	if wait != nil {
		f.started <- uid
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[uid]; err != nil {
		return nil, err
	}
	doc, ok := f.docs[uid]
	if !ok {
		return nil, prismic.ErrNotFound
	}
	return &doc, nil
}

func (f *fakeContent) FetchPage(_ context.Context, pageURL string) (*prismic.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, ok := f.pages[pageURL]
	if !ok {
		return nil, &prismic.APIError{StatusCode: http.StatusInternalServerError, URL: pageURL}
	}
	return resp, nil
}

func (f *fakeContent) SameOrigin(rawURL string) bool {
	return strings.HasPrefix(rawURL, fakeAPI+"/")
}

func (f *fakeContent) calls(uid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uidCalls[uid]
}

func (f *fakeContent) setDoc(doc prismic.Document) {
	f.mu.Lock()
	f.docs[doc.UID] = doc
	f.mu.Unlock()
}

func pageURL(n string) string {
	return fakeAPI + "/documents/search?page=" + n + "&pageSize=1"
}

func strPtr(s string) *string { return &s }

func testDoc(uid, title, published string) prismic.Document {
	data, _ := json.Marshal(map[string]any{
		"title":    title,
		"subtitle": "Sub " + uid,
		"author":   "Ana",
		"banner":   map[string]string{"url": "https://images.prismic.io/" + uid + ".png"},
		"content": []map[string]any{
			{"heading": "Intro", "body": []map[string]any{{"type": "paragraph", "text": "Hello " + uid, "spans": []any{}}}},
			{"heading": "Fim", "body": []map[string]any{{"type": "paragraph", "text": "Bye", "spans": []any{}}}},
		},
	})
	return prismic.Document{
		ID:                   "id-" + uid,
		UID:                  uid,
		Type:                 "post",
		FirstPublicationDate: strPtr(published),
		Data:                 data,
	}
}

func testPage(next *string, docs ...prismic.Document) *prismic.Response {
	return &prismic.Response{NextPage: next, Results: docs}
}

// seededContent has a two page listing (p1, then p2 and p3 on page 2) and
// the eager post.
func seededContent() *fakeContent {
	f := newFakeContent()
	f.first = testPage(strPtr(pageURL("2")), testDoc("p1", "Primeiro", "2023-03-15T10:00:00+0000"))
	f.pages[pageURL("2")] = testPage(nil,
		testDoc("p2", "Segundo", "2023-02-05T10:00:00+0000"),
		testDoc("p3", "Terceiro", "2023-01-01T10:00:00+0000"),
	)
	f.setDoc(testDoc("como-utilizar-hooks", "Como utilizar Hooks", "2021-03-25T19:25:28+0000"))
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, f *fakeContent, mods ...func(*SiteConfig)) *App {
	t.Helper()
	cfg := SiteConfig{
		Name:          "spacetraveling",
		URL:           "https://blog.example",
		Description:   "Um blog",
		EagerSlugs:    []string{"como-utilizar-hooks"},
		FallbackWait:  50 * time.Millisecond,
		FetchTimeout:  2 * time.Second,
		AdminPassword: "hunter2",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	}
	for _, m := range mods {
		m(&cfg)
	}
	a := New(cfg, DefaultViews(),
		WithContent(f),
		WithStore(setupTestStore(t)),
		WithLogger(discardLogger()),
	)
	if err := a.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func get(a *App, target string) *httptest.ResponseRecorder {
	return serve(a, httptest.NewRequest(http.MethodGet, target, nil))
}

func TestSetup_RequiresEndpoint(t *testing.T) {
	a := New(SiteConfig{}, DefaultViews(), WithStore(setupTestStore(t)), WithLogger(discardLogger()))
	if err := a.Setup(context.Background()); err == nil {
		t.Fatal("expected an error without a CMS endpoint")
	}
}

func TestSetup_RequiresSessionSecretForAdmin(t *testing.T) {
	a := New(SiteConfig{AdminPassword: "x"}, DefaultViews(), WithContent(newFakeContent()), WithLogger(discardLogger()))
	err := a.Setup(context.Background())
	if err == nil || !strings.Contains(err.Error(), "SessionSecret") {
		t.Fatalf("err = %v, want SessionSecret error", err)
	}
}

func TestSetup_BadLocale(t *testing.T) {
	a := New(SiteConfig{Locale: "not a locale"}, DefaultViews(), WithContent(newFakeContent()), WithLogger(discardLogger()))
	if err := a.Setup(context.Background()); err == nil {
		t.Fatal("expected an error for an unparseable locale")
	}
}

func TestSetDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	if cfg.PageSize != 1 {
		t.Errorf("PageSize = %d, want 1", cfg.PageSize)
	}
	if cfg.Locale != "pt-BR" {
		t.Errorf("Locale = %q, want pt-BR", cfg.Locale)
	}
	if len(cfg.EagerSlugs) != 2 {
		t.Errorf("EagerSlugs = %v, want the two defaults", cfg.EagerSlugs)
	}

	cfg = SiteConfig{EagerSlugs: []string{}}
	cfg.setDefaults()
	if len(cfg.EagerSlugs) != 0 {
		t.Errorf("explicitly empty EagerSlugs became %v", cfg.EagerSlugs)
	}
}

var errBoom = errors.New("boom")
