package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
// Every canonical, feed and sitemap URL of the site goes through it.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostURL is the canonical URL of a post page.
func PostURL(site Site, uid string) string {
	return BuildURL(site.URL, "post", uid)
}

// HomeURL is the canonical URL of the listing page.
func HomeURL(site Site) string {
	return BuildURL(site.URL)
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block for the listing.
func WebsiteJsonLD(site Site) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      BuildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  site.Author,
		}
	}
	return marshalLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
// The post's own author wins over the site author.
func BlogPostingJsonLD(site Site, uid string, p PostData) string {
	postURL := PostURL(site, uid)
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "BlogPosting",
		"headline": p.Title,
		"url":      postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  site.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if p.Meta.Description != "" {
		data["description"] = p.Meta.Description
	}
	if p.DateISO != "" {
		data["datePublished"] = p.DateISO
	}
	if p.BannerURL != "" {
		data["image"] = p.BannerURL
	}
	author := p.Author
	if author == "" {
		author = site.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	return marshalLD(data)
}

// json.Marshal escapes <, > and & so the result is safe inside <script>.
func marshalLD(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
