// Package post holds the blog's view of a CMS post: the listing summary, the
// full detail and the projections from raw documents.
package post

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

// TypeName is the CMS custom type of blog posts.
const TypeName = "post"

// ReadingTime is shown on every post page. It is a fixed label, not computed
// from the content.
const ReadingTime = "4 min"

// Summary is the listing projection of a post. ID is the document uid.
type Summary struct {
	ID          string     `json:"id"`
	PublishedAt *time.Time `json:"published_at"`
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle"`
	Author      string     `json:"author"`
}

// Link returns the post page path.
func (s Summary) Link() string {
	return Link(s.ID)
}

// Block is one section of a post body.
type Block struct {
	Heading string          `json:"heading"`
	Body    []richtext.Node `json:"body"`
}

// Detail is everything the post page shows.
type Detail struct {
	UID         string     `json:"uid"`
	PublishedAt *time.Time `json:"published_at"`
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle"`
	BannerURL   string     `json:"banner_url"`
	Author      string     `json:"author"`
	Content     []Block    `json:"content"`
}

// Summary projects d down to its listing fields.
func (d Detail) Summary() Summary {
	return Summary{
		ID:          d.UID,
		PublishedAt: d.PublishedAt,
		Title:       d.Title,
		Subtitle:    d.Subtitle,
		Author:      d.Author,
	}
}

// ContentHTML renders the body: each block becomes an <h2> heading followed
// by its rich text, in order.
func (d Detail) ContentHTML() string {
	return RenderContent(d.Content)
}

// RenderContent concatenates blocks as HTML in input order.
func RenderContent(blocks []Block) string {
	var b strings.Builder
	for _, block := range blocks {
		b.WriteString("<h2>")
		b.WriteString(html.EscapeString(block.Heading))
		b.WriteString("</h2>")
		b.WriteString(richtext.AsHTML(block.Body))
	}
	return b.String()
}

// Link returns the page path of the post with the given uid.
func Link(uid string) string {
	return "/post/" + url.PathEscape(uid) + "/"
}

type documentData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Banner   struct {
		URL string `json:"url"`
	} `json:"banner"`
	Content []Block `json:"content"`
}

// FromDocument projects a raw CMS document into a Detail. A publication date
// the API sent in an unknown format is dropped rather than failing the page.
func FromDocument(doc prismic.Document) (Detail, error) {
	var data documentData
	if err := doc.DecodeData(&data); err != nil {
		return Detail{}, fmt.Errorf("decode post %q: %w", doc.UID, err)
	}
	published, _ := prismic.ParseTimestamp(doc.FirstPublicationDate)
	return Detail{
		UID:         doc.UID,
		PublishedAt: published,
		Title:       data.Title,
		Subtitle:    data.Subtitle,
		BannerURL:   data.Banner.URL,
		Author:      data.Author,
		Content:     data.Content,
	}, nil
}

// SummaryFromDocument projects a raw CMS document into a Summary.
func SummaryFromDocument(doc prismic.Document) (Summary, error) {
	d, err := FromDocument(doc)
	if err != nil {
		return Summary{}, err
	}
	return d.Summary(), nil
}

// SummariesFromResponse projects every result of a page, in order.
func SummariesFromResponse(resp *prismic.Response) ([]Summary, error) {
	out := make([]Summary, 0, len(resp.Results))
	for _, doc := range resp.Results {
		s, err := SummaryFromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
