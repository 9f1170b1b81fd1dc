package spacetraveling

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderSitemap(c echo.Context, posts []post.Summary) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: views.BuildURL(base)},
	}
	for _, p := range posts {
		lastMod := ""
		if p.PublishedAt != nil {
			lastMod = p.PublishedAt.UTC().Format("2006-01-02")
		}
		urls = append(urls, sitemapURL{
			Loc:     views.BuildURL(base, "post", p.ID),
			LastMod: lastMod,
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
