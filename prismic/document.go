package prismic

import (
	"encoding/json"
	"time"
)

// Document is a raw CMS document. Data holds the custom type's fields and is
// decoded by the caller into its own structure.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href"`
	Tags                 []string        `json:"tags"`
	Lang                 string          `json:"lang"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// DecodeData unmarshals the document's data into v.
func (d *Document) DecodeData(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	return json.Unmarshal(d.Data, v)
}

// Response is one page of query results.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// APIInfo is the subset of the API root document the client reads.
type APIInfo struct {
	Refs []Ref `json:"refs"`
}

// Ref is a content release. The master ref is the published content.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// timestamp layouts the API has been seen to use; the first is the documented one.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02",
}

// ParseTimestamp parses a publication date as sent by the API. A nil or empty
// value yields nil with no error.
func ParseTimestamp(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, *s)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
