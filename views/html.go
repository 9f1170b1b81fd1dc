package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const header = `<header class="header">
<a href="/"><img src="/images/logo.svg" alt="logo"></a>
</header>
`

const noindex = `<meta name="robots" content="noindex">`

var noindexHead = templ.Raw(noindex)

const (
	iconCalendar = `<svg class="icon" viewBox="0 0 24 24" width="20" height="20" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><rect x="3" y="4" width="18" height="18" rx="2" ry="2"></rect><line x1="16" y1="2" x2="16" y2="6"></line><line x1="8" y1="2" x2="8" y2="6"></line><line x1="3" y1="10" x2="21" y2="10"></line></svg>`
	iconUser     = `<svg class="icon" viewBox="0 0 24 24" width="20" height="20" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><path d="M20 21v-2a4 4 0 0 0-4-4H8a4 4 0 0 0-4 4v2"></path><circle cx="12" cy="7" r="4"></circle></svg>`
	iconClock    = `<svg class="icon" viewBox="0 0 24 24" width="20" height="20" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><circle cx="12" cy="12" r="10"></circle><polyline points="12 6 12 12 16 14"></polyline></svg>`
)

// html writes markup and keeps the first error, so components can emit a
// page without checking every write.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes escaped character data.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (h *html) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// url writes a URL attribute. Unsafe schemes are replaced by templ.
func (h *html) url(name, value string) {
	h.attr(name, string(templ.URL(value)))
}

func (h *html) meta(key, name, content string) {
	h.raw("<meta")
	h.attr(key, name)
	h.attr("content", content)
	h.raw(">\n")
}

func (h *html) csrf(token string) {
	h.raw(`<input type="hidden" name="_csrf"`)
	h.attr("value", token)
	h.raw(">\n")
}

// info writes the date, author and optional reading time row.
func (h *html) info(dateISO, date, author, readingTime string) {
	h.raw(`<div class="info">`, "\n<time")
	h.attr("datetime", dateISO)
	h.raw(">", iconCalendar)
	h.text(date)
	h.raw("</time>\n<span>", iconUser)
	h.text(author)
	h.raw("</span>\n")
	if readingTime != "" {
		h.raw("<span>", iconClock)
		h.text(readingTime)
		h.raw("</span>\n")
	}
	h.raw("</div>\n")
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}
