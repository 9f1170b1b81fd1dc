package spacetraveling

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/views"
)

const (
	loadMorePath   = "/posts/more/"
	headerNextPage = "X-Next-Page"
)

func (a *App) handleHome(c echo.Context) error {
	st, err := a.resolver.Listing(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.homeData(st)))
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	res, err := a.resolver.Resolve(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	switch res.State {
	case NotFound:
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.errorData("Página não encontrada")))
	case Pending:
		c.Response().Header().Set("Cache-Control", "no-store")
		return Render(c, a.Views.Loading(views.LoadingData{
			Site:         a.site(),
			Meta:         views.PageMeta{Title: "Carregando..."},
			RetrySeconds: a.retrySeconds(),
		}))
	}
	return Render(c, a.Views.Post(a.postData(res.Post)))
}

// handleLoadMore serves one load-more step for a page that holds its state
// in the DOM: it fetches the cursor, renders the appended post (if any) and
// returns the new cursor in X-Next-Page. No header means the end was reached.
func (a *App) handleLoadMore(c echo.Context) error {
	if !a.moreLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many requests. Try again later.")
	}
	cursor := c.QueryParam("cursor")
	if cursor == "" || !a.content.SameOrigin(cursor) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
	}

	ctx := c.Request().Context()
	next, err := listing.State{Cursor: &cursor}.LoadMore(ctx, a.content)
	if err != nil {
		a.log.WarnContext(ctx, "load more", "cursor", cursor, "error", err)
		return c.NoContent(http.StatusBadGateway)
	}

	var buf bytes.Buffer
	for _, item := range next.Items {
		if err := a.Views.PostItem(a.postItem(item)).Render(ctx, &buf); err != nil {
			return err
		}
	}
	h := c.Response().Header()
	h.Set("Cache-Control", "no-store")
	if next.CanLoadMore() {
		h.Set(headerNextPage, *next.Cursor)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.knownPosts(c)
	if err != nil {
		return err
	}
	// Generated pages not loaded since the last restart are still pages.
	snapshots, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(posts))
	for _, p := range posts {
		known[p.ID] = true
	}
	for _, s := range snapshots {
		if !known[s.Slug] {
			posts = append(posts, post.Summary{ID: s.Slug, Title: s.Title})
		}
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.knownPosts(c)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /admin/\nSitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func handleLogo(c echo.Context) error {
	b, err := EmbeddedAssets.ReadFile("embedded/logo.svg")
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/svg+xml", b)
}

// knownPosts merges the listing seed with every post resolved so far.
func (a *App) knownPosts(c echo.Context) ([]post.Summary, error) {
	st, err := a.resolver.Listing(c.Request().Context())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(st.Items))
	out := make([]post.Summary, 0, len(st.Items))
	for _, s := range append(append([]post.Summary(nil), st.Items...), a.Cache.Summaries()...) {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	sortSummaries(out)
	return out, nil
}

func (a *App) homeData(st listing.State) views.HomeData {
	items := make([]views.PostItem, len(st.Items))
	for i, s := range st.Items {
		items[i] = a.postItem(s)
	}
	site := a.site()
	data := views.HomeData{
		Site: site,
		Meta: views.PageMeta{
			Description: a.Config.Description,
			URL:         views.HomeURL(site),
			OGType:      "website",
		},
		Posts:       items,
		LoadMoreURL: loadMorePath,
		JSONLD:      views.WebsiteJsonLD(site),
	}
	if st.CanLoadMore() {
		data.NextPage = *st.Cursor
	}
	return data
}

func (a *App) postItem(s post.Summary) views.PostItem {
	return views.PostItem{
		ID:       s.ID,
		Link:     s.Link(),
		Title:    s.Title,
		Subtitle: s.Subtitle,
		Author:   s.Author,
		Date:     a.dates.Format(s.PublishedAt),
		DateISO:  a.dates.ISO(s.PublishedAt),
	}
}

func (a *App) postData(d post.Detail) views.PostData {
	site := a.site()
	data := views.PostData{
		Site: site,
		Meta: views.PageMeta{
			Title:       d.Title,
			Description: d.Subtitle,
			URL:         views.PostURL(site, d.UID),
			OGType:      "article",
			Image:       d.BannerURL,
		},
		Title:       d.Title,
		BannerURL:   d.BannerURL,
		Author:      d.Author,
		Date:        a.dates.Format(d.PublishedAt),
		DateISO:     a.dates.ISO(d.PublishedAt),
		ReadingTime: post.ReadingTime,
		Content:     templ.Raw(d.ContentHTML()),
	}
	data.JSONLD = views.BlogPostingJsonLD(site, d.UID, data)
	return data
}

func (a *App) errorData(title string) views.ErrorData {
	return views.ErrorData{Site: a.site(), Meta: views.PageMeta{Title: title}}
}

// retrySeconds is how long the placeholder waits before reloading, at
// least one second.
func (a *App) retrySeconds() int {
	s := int(a.Config.FallbackWait.Seconds())
	if s < 1 {
		return 1
	}
	return s
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.errorData("Página não encontrada")))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.log.ErrorContext(c.Request().Context(), "server error",
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"status", code,
			"error", err,
		)
		_ = RenderStatus(c, code, a.Views.ServerError(a.errorData("Erro")))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
