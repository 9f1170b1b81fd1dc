// Package prismic is a small client for the Prismic REST API v2. It covers the
// calls a read-only front-end needs: querying documents by type, resolving a
// document by uid and following next_page continuation URLs.
//
// The client neither retries nor caches. Every query looks up the current
// master ref first, so published changes show up on the next call.
package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxErrorBody    = 4 << 10
)

var (
	// ErrNotFound is returned when a document (or the whole endpoint) does not exist.
	ErrNotFound = errors.New("prismic: document not found")
	// ErrForeignURL is returned by FetchPage for URLs outside the configured API.
	ErrForeignURL = errors.New("prismic: url does not belong to the configured api")
	// ErrNoMasterRef is returned when the API root does not advertise a master ref.
	ErrNoMasterRef = errors.New("prismic: api has no master ref")
)

// APIError describes a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("prismic: %s returned %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("prismic: %s returned %d", e.URL, e.StatusCode)
}

// Client talks to one Prismic repository.
type Client struct {
	endpoint    *url.URL
	httpClient  *http.Client
	accessToken string
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token sent with every request of a private repository.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient returns a client for the API root endpoint, for example
// "https://my-repo.cdn.prismic.io/api/v2".
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if len(endpoint) == 0 {
		return nil, errors.New("missing api endpoint")
	}

	u, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "api endpoint %q is not a valid url", endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		endpoint:   u,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the API root the client was created with.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// QueryOptions tunes a document query.
type QueryOptions struct {
	PageSize int
	Page     int
	Lang     string
	// Orderings is passed as-is, e.g. "[document.first_publication_date desc]".
	Orderings string
}

// GetByType returns one page of documents of the given custom type.
func (c *Client) GetByType(ctx context.Context, typeName string, opts QueryOptions) (*Response, error) {
	if typeName == "" {
		return nil, errors.New("missing document type")
	}
	return c.query(ctx, atPredicate("document.type", typeName), opts)
}

// GetByUID resolves the single document of typeName whose uid is uid.
// It returns ErrNotFound when no such document is published.
func (c *Client) GetByUID(ctx context.Context, typeName, uid string) (*Document, error) {
	if typeName == "" || uid == "" {
		return nil, errors.New("missing document type or uid")
	}

	resp, err := c.query(ctx, atPredicate("my."+typeName+".uid", uid), QueryOptions{PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "%s %q", typeName, uid)
	}
	return &resp.Results[0], nil
}

// FetchPage follows a continuation URL taken from Response.NextPage.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Response, error) {
	if !c.SameOrigin(pageURL) {
		return nil, errors.Wrapf(ErrForeignURL, "%q", pageURL)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid page url")
	}

	var resp Response
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch page")
	}
	resp.stripToken()
	return &resp, nil
}

// SameOrigin reports whether rawURL points at the configured API (same scheme,
// host and path prefix). Continuation URLs coming back from browsers are
// checked with it before the server follows them.
func (c *Client) SameOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return false
	}
	if u.Scheme != c.endpoint.Scheme || !strings.EqualFold(u.Host, c.endpoint.Host) {
		return false
	}
	return u.Path == c.endpoint.Path || strings.HasPrefix(u.Path, c.endpoint.Path+"/")
}

func (c *Client) query(ctx context.Context, predicate string, opts QueryOptions) (*Response, error) {
	ref, err := c.masterRef(ctx)
	if err != nil {
		return nil, err
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	queries := map[string]string{
		"ref":      ref,
		"q":        "[" + predicate + "]",
		"pageSize": strconv.Itoa(pageSize),
	}
	if opts.Page > 1 {
		queries["page"] = strconv.Itoa(opts.Page)
	}
	if opts.Lang != "" {
		queries["lang"] = opts.Lang
	}
	if opts.Orderings != "" {
		queries["orderings"] = opts.Orderings
	}

	var resp Response
	if err := c.get(ctx, c.resolve("documents/search", queries), &resp); err != nil {
		return nil, errors.Wrap(err, "failed to query documents")
	}
	resp.stripToken()
	return &resp, nil
}

func (c *Client) masterRef(ctx context.Context) (string, error) {
	var info APIInfo
	if err := c.get(ctx, c.resolve("", nil), &info); err != nil {
		return "", errors.Wrap(err, "failed to read api root")
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", ErrNoMasterRef
}

func (c *Client) resolve(requestPath string, queries map[string]string) *url.URL {
	u := *c.endpoint
	if requestPath != "" {
		u.Path = path.Join(c.endpoint.Path, requestPath)
	}
	q := url.Values{}
	for key, value := range queries {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return &u
}

func (c *Client) get(ctx context.Context, u *url.URL, out any) error {
	if c.accessToken != "" && u.Query().Get("access_token") == "" {
		q := u.Query()
		q.Set("access_token", c.accessToken)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "cannot create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, redact(u))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func newAPIError(resp *http.Response, u string) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, URL: u}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}

// stripToken removes the access token the API echoes back in continuation
// URLs. Cursors reach pages, headers and logs; get adds the token again.
func (r *Response) stripToken() {
	r.NextPage = withoutToken(r.NextPage)
	r.PrevPage = withoutToken(r.PrevPage)
}

func withoutToken(raw *string) *string {
	if raw == nil {
		return nil
	}
	u, err := url.Parse(*raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("access_token") {
		return raw
	}
	q.Del("access_token")
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// redact drops the access token so it never ends up in logs.
func redact(u *url.URL) string {
	cp := *u
	q := cp.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		cp.RawQuery = q.Encode()
	}
	return cp.String()
}

func atPredicate(fragment, value string) string {
	return fmt.Sprintf("[at(%s, %s)]", fragment, strconv.Quote(value))
}
