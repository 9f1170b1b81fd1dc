// Package richtext renders Prismic structured text as HTML, either as a string
// or as a templ component.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Block node types.
const (
	TypeParagraph    = "paragraph"
	TypePreformatted = "preformatted"
	TypeListItem     = "list-item"
	TypeOListItem    = "o-list-item"
	TypeImage        = "image"
	TypeEmbed        = "embed"
)

// Span types.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// Node is one block of structured text.
type Node struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	Spans      []Span      `json:"spans"`
	URL        string      `json:"url,omitempty"`
	Alt        *string     `json:"alt,omitempty"`
	Copyright  *string     `json:"copyright,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	LinkTo     *Link       `json:"linkTo,omitempty"`
	OEmbed     *OEmbed     `json:"oembed,omitempty"`
	Label      string      `json:"label,omitempty"`
}

// Span marks an inline range of Node.Text. Start and End count UTF-16 code
// units, the way the CMS editor does.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	Data  *Link  `json:"data,omitempty"`
}

// Link is the data of a hyperlink span or an image link. Label spans only
// carry Label.
type Link struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Dimensions of an image block.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OEmbed is the payload of an embed block.
type OEmbed struct {
	Type         string `json:"type"`
	EmbedURL     string `json:"embed_url"`
	ProviderName string `json:"provider_name"`
	HTML         string `json:"html"`
	Title        string `json:"title,omitempty"`
}

// LinkResolver turns a link into an href.
type LinkResolver func(Link) string

// DefaultLinkResolver uses the URL of web and media links and maps document
// links to /{type}/{uid}/.
func DefaultLinkResolver(l Link) string {
	if l.URL != "" {
		return l.URL
	}
	if l.LinkType == "Document" && l.Type != "" && l.UID != "" {
		return "/" + l.Type + "/" + l.UID + "/"
	}
	return "/"
}

// Renderer writes structured text as HTML.
type Renderer struct {
	resolve LinkResolver
}

// New returns a Renderer using resolve for links; nil means DefaultLinkResolver.
func New(resolve LinkResolver) *Renderer {
	if resolve == nil {
		resolve = DefaultLinkResolver
	}
	return &Renderer{resolve: resolve}
}

var defaultRenderer = New(nil)

// AsHTML renders nodes with the default link resolver.
func AsHTML(nodes []Node) string {
	return defaultRenderer.AsHTML(nodes)
}

// Component returns a templ.Component that renders nodes as HTML.
func Component(nodes []Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		defaultRenderer.Render(&buf, nodes)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// AsHTML renders nodes to a string.
func (r *Renderer) AsHTML(nodes []Node) string {
	var buf bytes.Buffer
	r.Render(&buf, nodes)
	return buf.String()
}

// Render writes the HTML representation of nodes to buf. Consecutive list
// items are grouped into a single <ul> or <ol>.
func (r *Renderer) Render(buf *bytes.Buffer, nodes []Node) {
	openList := ""
	flushList := func() {
		if openList != "" {
			buf.WriteString("</" + openList + ">")
			openList = ""
		}
	}

	for _, n := range nodes {
		list := ""
		switch n.Type {
		case TypeListItem:
			list = "ul"
		case TypeOListItem:
			list = "ol"
		}
		if list != openList {
			flushList()
			if list != "" {
				buf.WriteString("<" + list + ">")
				openList = list
			}
		}
		r.renderBlock(buf, n)
	}
	flushList()
}

func (r *Renderer) renderBlock(buf *bytes.Buffer, n Node) {
	switch {
	case n.Type == TypeParagraph:
		r.wrap(buf, "p", n)
	case n.Type == TypePreformatted:
		r.wrap(buf, "pre", n)
	case n.Type == TypeListItem, n.Type == TypeOListItem:
		r.wrap(buf, "li", n)
	case isHeading(n.Type):
		r.wrap(buf, "h"+n.Type[len("heading"):], n)
	case n.Type == TypeImage:
		r.renderImage(buf, n)
	case n.Type == TypeEmbed:
		renderEmbed(buf, n)
	}
	// unknown block types are dropped
}

func isHeading(t string) bool {
	if !strings.HasPrefix(t, "heading") || len(t) != len("heading")+1 {
		return false
	}
	level := t[len(t)-1]
	return level >= '1' && level <= '6'
}

func (r *Renderer) wrap(buf *bytes.Buffer, tag string, n Node) {
	buf.WriteString("<" + tag)
	if n.Label != "" {
		buf.WriteString(` class="` + html.EscapeString(n.Label) + `"`)
	}
	buf.WriteString(">")
	r.renderSpans(buf, n.Text, n.Spans)
	buf.WriteString("</" + tag + ">")
}

func (r *Renderer) renderImage(buf *bytes.Buffer, n Node) {
	alt := ""
	if n.Alt != nil {
		alt = *n.Alt
	}
	copyright := ""
	if n.Copyright != nil {
		copyright = *n.Copyright
	}
	img := `<img src="` + html.EscapeString(n.URL) + `" alt="` + html.EscapeString(alt) +
		`" copyright="` + html.EscapeString(copyright) + `" />`
	if n.LinkTo != nil {
		img = r.openLink(*n.LinkTo) + img + "</a>"
	}
	buf.WriteString(`<p class="block-img">` + img + `</p>`)
}

func renderEmbed(buf *bytes.Buffer, n Node) {
	if n.OEmbed == nil {
		return
	}
	e := n.OEmbed
	buf.WriteString(`<div data-oembed="` + html.EscapeString(e.EmbedURL) +
		`" data-oembed-type="` + html.EscapeString(e.Type) +
		`" data-oembed-provider="` + html.EscapeString(e.ProviderName) + `">`)
	// embed html is provider markup and is trusted as-is
	buf.WriteString(e.HTML)
	buf.WriteString("</div>")
}

func (r *Renderer) openLink(l Link) string {
	var b strings.Builder
	b.WriteString("<a")
	if l.Target != "" {
		b.WriteString(` target="` + html.EscapeString(l.Target) + `" rel="noopener noreferrer"`)
	}
	b.WriteString(` href="` + html.EscapeString(r.resolve(l)) + `">`)
	return b.String()
}

func (r *Renderer) openSpan(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "<strong>"
	case SpanEm:
		return "<em>"
	case SpanHyperlink:
		if s.Data == nil {
			return "<a>"
		}
		return r.openLink(*s.Data)
	case SpanLabel:
		label := ""
		if s.Data != nil {
			label = s.Data.Label
		}
		return `<span class="` + html.EscapeString(label) + `">`
	}
	return ""
}

func closeSpan(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "</strong>"
	case SpanEm:
		return "</em>"
	case SpanHyperlink:
		return "</a>"
	case SpanLabel:
		return "</span>"
	}
	return ""
}

func writeText(buf *bytes.Buffer, s string) {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("<br />")
		}
		buf.WriteString(html.EscapeString(line))
	}
}
