package prismic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves an API root and a search endpoint backed by search.
func fakeAPI(t *testing.T, search func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(APIInfo{Refs: []Ref{
			{ID: "preview", Ref: "draft-ref"},
			{ID: "master", Ref: "master-ref", IsMasterRef: true},
		}})
	})
	mux.HandleFunc("/api/v2/documents/search", search)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api/v2", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return srv, c
}

// TestGetByType_BuildsQuery verifies ref, predicate and page size are sent
func TestGetByType_BuildsQuery(t *testing.T) {
	var got map[string]string
	_, c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{"ref": q.Get("ref"), "q": q.Get("q"), "pageSize": q.Get("pageSize")}
		_, _ = w.Write([]byte(`{"page":1,"results_per_page":1,"next_page":"https://x/2","results":[{"uid":"p1","data":{"title":"T"}}]}`))
	})

	resp, err := c.GetByType(context.Background(), "post", QueryOptions{PageSize: 1})
	require.NoError(t, err)

	assert.Equal(t, "master-ref", got["ref"])
	assert.Equal(t, `[[at(document.type, "post")]]`, got["q"])
	assert.Equal(t, "1", got["pageSize"])
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "p1", resp.Results[0].UID)
	require.NotNil(t, resp.NextPage)
	assert.Equal(t, "https://x/2", *resp.NextPage)
}

// TestGetByType_DefaultPageSize verifies a zero page size falls back to the API default
func TestGetByType_DefaultPageSize(t *testing.T) {
	var pageSize string
	_, c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		pageSize = r.URL.Query().Get("pageSize")
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	_, err := c.GetByType(context.Background(), "post", QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "20", pageSize)
}

// TestGetByUID_Found verifies the uid predicate and the returned document
func TestGetByUID_Found(t *testing.T) {
	var predicate string
	_, c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		predicate = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"results":[{"uid":"como-utilizar-hooks","first_publication_date":"2021-03-15T19:25:28+0000","data":{"title":"Hooks"}}]}`))
	})

	doc, err := c.GetByUID(context.Background(), "post", "como-utilizar-hooks")
	require.NoError(t, err)
	assert.Equal(t, `[[at(my.post.uid, "como-utilizar-hooks")]]`, predicate)
	assert.Equal(t, "como-utilizar-hooks", doc.UID)

	var data struct {
		Title string `json:"title"`
	}
	require.NoError(t, doc.DecodeData(&data))
	assert.Equal(t, "Hooks", data.Title)
}

// TestGetByUID_NotFound verifies an empty result set maps to ErrNotFound
func TestGetByUID_NotFound(t *testing.T) {
	_, c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	_, err := c.GetByUID(context.Background(), "post", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// TestGet_APIError verifies non-2xx answers carry status and message
func TestGet_APIError(t *testing.T) {
	_, c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad predicate"}`))
	})

	_, err := c.GetByType(context.Background(), "post", QueryOptions{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad predicate", apiErr.Message)
}

// TestFetchPage_FollowsContinuation verifies next_page urls are fetched verbatim
func TestFetchPage_FollowsContinuation(t *testing.T) {
	var page string
	srv, c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		page = r.URL.Query().Get("page")
		_, _ = w.Write([]byte(`{"page":2,"next_page":null,"results":[{"uid":"p2"}]}`))
	})

	resp, err := c.FetchPage(context.Background(), srv.URL+"/api/v2/documents/search?ref=master-ref&page=2&pageSize=1")
	require.NoError(t, err)
	assert.Equal(t, "2", page)
	assert.Nil(t, resp.NextPage)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "p2", resp.Results[0].UID)
}

// TestFetchPage_RejectsForeignURL verifies the client never follows other hosts
func TestFetchPage_RejectsForeignURL(t *testing.T) {
	_, c := fakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("search endpoint must not be called")
	})

	_, err := c.FetchPage(context.Background(), "http://169.254.169.254/latest/meta-data")
	assert.True(t, errors.Is(err, ErrForeignURL))
}

func TestSameOrigin(t *testing.T) {
	c, err := NewClient("https://repo.cdn.prismic.io/api/v2")
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"search page", "https://repo.cdn.prismic.io/api/v2/documents/search?page=2", true},
		{"api root", "https://repo.cdn.prismic.io/api/v2", true},
		{"other host", "https://evil.example/api/v2/documents/search", false},
		{"other scheme", "http://repo.cdn.prismic.io/api/v2/documents/search", false},
		{"path prefix trick", "https://repo.cdn.prismic.io/api/v2evil", false},
		{"relative", "/api/v2/documents/search", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.SameOrigin(tt.url))
		})
	}
}

// TestAccessToken_SentAndRedacted verifies the token is sent but hidden in errors
func TestAccessToken_SentAndRedacted(t *testing.T) {
	var token string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		token = r.URL.Query().Get("access_token")
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api/v2", WithAccessToken("s3cret"))
	require.NoError(t, err)

	_, err = c.GetByType(context.Background(), "post", QueryOptions{})
	require.Error(t, err)
	assert.Equal(t, "s3cret", token)
	assert.NotContains(t, err.Error(), "s3cret")
}

// TestNextPage_TokenStripped verifies continuation urls never carry the
// access token, while following them still sends it
func TestNextPage_TokenStripped(t *testing.T) {
	var tokens []string
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(APIInfo{Refs: []Ref{{ID: "master", Ref: "master-ref", IsMasterRef: true}}})
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("access_token"))
		next := srvURL + "/api/v2/documents/search?" + r.URL.RawQuery + "&page=2"
		_ = json.NewEncoder(w).Encode(Response{Page: 1, NextPage: &next, PrevPage: &next})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c, err := NewClient(srv.URL+"/api/v2", WithAccessToken("s3cret"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	resp, err := c.GetByType(context.Background(), "post", QueryOptions{PageSize: 1})
	require.NoError(t, err)
	require.NotNil(t, resp.NextPage)
	assert.NotContains(t, *resp.NextPage, "s3cret")
	assert.NotContains(t, *resp.PrevPage, "s3cret")
	assert.Contains(t, *resp.NextPage, "page=2")
	assert.True(t, c.SameOrigin(*resp.NextPage))

	resp, err = c.FetchPage(context.Background(), *resp.NextPage)
	require.NoError(t, err)
	assert.NotContains(t, *resp.NextPage, "s3cret")
	assert.Equal(t, []string{"s3cret", "s3cret"}, tokens)
}

func TestParseTimestamp(t *testing.T) {
	s := "2021-03-15T19:25:28+0000"
	got, err := ParseTimestamp(&s)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2021, 3, 15, 19, 25, 28, 0, time.UTC)))

	got, err = ParseTimestamp(nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	bad := "yesterday"
	_, err = ParseTimestamp(&bad)
	assert.Error(t, err)
}
