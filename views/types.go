package views

import "github.com/a-h/templ"

// Site holds site-wide settings. Every page gets it so nothing is hardcoded.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
	Lang        string // html lang attribute, e.g. "pt-BR"
}

// PageMeta carries per-page OpenGraph and SEO metadata into the page <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// PostItem is one entry of the listing, already formatted for display.
type PostItem struct {
	ID       string
	Link     string
	Title    string
	Subtitle string
	Author   string
	Date     string
	DateISO  string
}

// HomeData is the listing page.
type HomeData struct {
	Site        Site
	Meta        PageMeta
	Posts       []PostItem
	NextPage    string // empty hides the load-more button
	LoadMoreURL string
	JSONLD      string // JSON-LD document, safe to embed in <script>
}

// PostData is a resolved post page.
type PostData struct {
	Site        Site
	Meta        PageMeta
	Title       string
	BannerURL   string
	Author      string
	Date        string
	DateISO     string
	ReadingTime string
	Content     templ.Component
	JSONLD      string // JSON-LD document, safe to embed in <script>
}

// LoadingData is the placeholder shown while a post is resolved on demand.
type LoadingData struct {
	Site         Site
	Meta         PageMeta
	RetrySeconds int
}

// ErrorData is shared by the 404 and 500 pages.
type ErrorData struct {
	Site Site
	Meta PageMeta
}

// Snapshot is one generated page listed on the admin dashboard.
type Snapshot struct {
	Slug        string
	Title       string
	Link        string
	GeneratedAt string
	Eager       bool
}

// AdminData is the admin dashboard.
type AdminData struct {
	Site               Site
	Meta               PageMeta
	Snapshots          []Snapshot
	ListingGeneratedAt string
	Message            string
	CSRFToken          string
}

// AdminLoginData is the admin login form.
type AdminLoginData struct {
	Site      Site
	Meta      PageMeta
	ShowError bool
	CSRFToken string
}
