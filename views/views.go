// Package views holds the site's pages as templ components. Handlers only
// see templ.Component, so a site can replace any page with its own.
package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Home renders the listing page.
func Home(data HomeData) templ.Component {
	head := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<script type="application/ld+json">`, data.JSONLD, `</script>`, "\n")
		h.raw(`<script src="/public/loadmore.js" defer></script>`)
		return h.err
	})
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<main class="container home">`, "\n")
		h.raw(`<img class="logo" src="/images/logo.svg" alt="logo">`, "\n")
		h.raw(`<div class="posts" data-posts>`, "\n")
		for _, item := range data.Posts {
			h.render(ctx, Item(item))
		}
		h.raw(`</div>`, "\n")
		if data.NextPage != "" {
			h.raw(`<button type="button" class="load-more" data-load-more`)
			h.attr("data-next-page", data.NextPage)
			h.attr("data-endpoint", data.LoadMoreURL)
			h.raw(`>Carregar mais posts</button>`, "\n")
		}
		h.raw(`</main>`)
		return h.err
	})
	return layout(data.Site, data.Meta, head, body)
}

// Item renders a single listing entry. The load-more endpoint returns it
// as a fragment that the page appends.
func Item(item PostItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<a class="post"`)
		h.url("href", item.Link)
		h.attr("data-id", item.ID)
		h.raw(">\n<h1>")
		h.text(item.Title)
		h.raw("</h1>\n<h2>")
		h.text(item.Subtitle)
		h.raw("</h2>\n")
		h.info(item.DateISO, item.Date, item.Author, "")
		h.raw("</a>\n")
		return h.err
	})
}

// Post renders a resolved post.
func Post(data PostData) templ.Component {
	head := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<script type="application/ld+json">`, data.JSONLD, `</script>`)
		return h.err
	})
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(header)
		if data.BannerURL != "" {
			h.raw(`<div class="banner"><img`)
			h.url("src", data.BannerURL)
			h.raw(` alt=""></div>`, "\n")
		}
		h.raw(`<main class="container post-page">`, "\n<article>\n")
		h.raw(`<div class="post-header">`, "\n<h1>")
		h.text(data.Title)
		h.raw("</h1>\n")
		h.info(data.DateISO, data.Date, data.Author, data.ReadingTime)
		h.raw("</div>\n", `<div class="post-content">`)
		if data.Content != nil {
			h.render(ctx, data.Content)
		}
		h.raw("</div>\n</article>\n</main>")
		return h.err
	})
	return layout(data.Site, data.Meta, head, body)
}

// Loading renders the placeholder for a post that is still being resolved.
func Loading(data LoadingData) templ.Component {
	head := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<meta http-equiv="refresh"`)
		h.attr("content", strconv.Itoa(data.RetrySeconds))
		h.raw(">\n", noindex)
		return h.err
	})
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(header, `<main class="container loading">`, "\n<strong>Carregando...</strong>\n</main>")
		return h.err
	})
	return layout(data.Site, data.Meta, head, body)
}

// NotFound renders the 404 page.
func NotFound(data ErrorData) templ.Component {
	return errorPage(data, "404", "Post não encontrado.")
}

// ServerError renders the 500 page.
func ServerError(data ErrorData) templ.Component {
	return errorPage(data, "500", "Algo deu errado. Tente novamente em instantes.")
}

func errorPage(data ErrorData, code, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(header, `<main class="container error-page">`, "\n<h1>", code, "</h1>\n<p>")
		h.text(message)
		h.raw("</p>\n", `<a href="/">Voltar para a página inicial</a>`, "\n</main>")
		return h.err
	})
	return layout(data.Site, data.Meta, nil, body)
}

// AdminLogin renders the admin password form.
func AdminLogin(data AdminLoginData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(header, `<main class="container admin">`, "\n<h1>Admin</h1>\n")
		if data.ShowError {
			h.raw(`<p class="error">Senha incorreta.</p>`, "\n")
		}
		h.raw(`<form method="post" action="/admin/login/">`, "\n")
		h.csrf(data.CSRFToken)
		h.raw(`<label>Senha <input type="password" name="password" autocomplete="current-password" required></label>`, "\n")
		h.raw(`<button type="submit">Entrar</button>`, "\n</form>\n</main>")
		return h.err
	})
	return layout(data.Site, data.Meta, noindexHead, body)
}

// AdminDashboard renders the generated pages overview.
func AdminDashboard(data AdminData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(header, `<main class="container admin">`, "\n<h1>Páginas geradas</h1>\n")
		if data.Message != "" {
			h.raw(`<p class="message">`)
			h.text(data.Message)
			h.raw("</p>\n")
		}
		generated := data.ListingGeneratedAt
		if generated == "" {
			generated = "nunca"
		}
		h.raw("<section>\n<h2>Listagem</h2>\n<p>Gerada em ")
		h.text(generated)
		h.raw("</p>\n", `<form method="post" action="/admin/revalidate-listing/">`, "\n")
		h.csrf(data.CSRFToken)
		h.raw(`<button type="submit">Revalidar listagem</button>`, "\n</form>\n</section>\n")

		h.raw("<table>\n<thead><tr><th>Post</th><th>Gerado em</th><th>Caminho</th><th></th></tr></thead>\n<tbody>\n")
		for _, s := range data.Snapshots {
			h.raw("<tr>\n<td><a")
			h.url("href", s.Link)
			h.raw(">")
			h.text(s.Title)
			h.raw("</a></td>\n<td>")
			h.text(s.GeneratedAt)
			h.raw("</td>\n<td>")
			if s.Eager {
				h.raw("pré-gerado")
			} else {
				h.raw("sob demanda")
			}
			h.raw("</td>\n<td>\n", `<form method="post"`)
			h.attr("action", "/admin/revalidate/"+s.Slug+"/")
			h.raw(">\n")
			h.csrf(data.CSRFToken)
			h.raw(`<button type="submit">Revalidar</button>`, "\n</form>\n</td>\n</tr>\n")
		}
		if len(data.Snapshots) == 0 {
			h.raw(`<tr><td colspan="4">Nenhuma página gerada ainda.</td></tr>`, "\n")
		}
		h.raw("</tbody>\n</table>\n", `<form method="post" action="/admin/logout/">`, "\n")
		h.csrf(data.CSRFToken)
		h.raw(`<button type="submit">Sair</button>`, "\n</form>\n</main>")
		return h.err
	})
	return layout(data.Site, data.Meta, noindexHead, body)
}

// layout wraps a page body in the document shell shared by every page.
func layout(site Site, meta PageMeta, head, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw("<!DOCTYPE html>\n<html")
		h.attr("lang", site.Lang)
		h.raw(">\n<head>\n", `<meta charset="utf-8">`, "\n")
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`, "\n<title>")
		if meta.Title != "" {
			h.text(meta.Title + " | ")
		}
		h.text(site.Name)
		h.raw("</title>\n")
		if meta.Description != "" {
			h.meta("name", "description", meta.Description)
			h.meta("property", "og:description", meta.Description)
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.url("href", meta.URL)
			h.raw(">\n")
			h.meta("property", "og:url", meta.URL)
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}
		h.meta("property", "og:type", ogType)
		h.meta("property", "og:site_name", site.Name)
		if meta.Image != "" {
			h.meta("property", "og:image", meta.Image)
		}
		h.raw(`<link rel="icon" href="/images/logo.svg" type="image/svg+xml">`, "\n")
		h.raw(`<link rel="alternate" type="application/rss+xml"`)
		h.attr("title", site.Name)
		h.raw(` href="/feed.xml">`, "\n")
		h.raw(`<link rel="stylesheet" href="/public/style.css">`, "\n")
		if head != nil {
			h.render(ctx, head)
			h.raw("\n")
		}
		h.raw("</head>\n<body>\n")
		h.render(ctx, body)
		h.raw("\n</body>\n</html>\n")
		return h.err
	})
}
