package document

import (
	"strings"

	"github.com/fastygo/teamspace/domain"
)

// Filter narrows the document list by category and search text.
type Filter struct {
	Category string `json:"category"`
	Search   string `json:"search"`
}

func (f Filter) Match(d domain.Document) bool {
	if f.Category != "" && string(d.Category) != f.Category {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(strings.ToLower(domain.Deref(d.Description)), q)
}

// Entry is a document with its comments.
type Entry struct {
	domain.Document
	Comments []domain.Comment `json:"comments"`
}

// Listing is the derived documents page.
type Listing struct {
	Entries    []Entry                         `json:"entries"`
	ByCategory map[domain.DocumentCategory]int `json:"by_category"`
}

// Build filters documents and attaches their comments. Category counts cover
// every document regardless of the filter.
func Build(docs []domain.Document, comments []domain.Comment, filter Filter) Listing {
	byDoc := make(map[string][]domain.Comment)
	for _, c := range comments {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}
	out := Listing{Entries: []Entry{}, ByCategory: make(map[domain.DocumentCategory]int)}
	for _, d := range docs {
		out.ByCategory[d.Category]++
		if !filter.Match(d) {
			continue
		}
		own := byDoc[d.ID]
		if own == nil {
			own = []domain.Comment{}
		}
		out.Entries = append(out.Entries, Entry{Document: d, Comments: own})
	}
	return out
}

// CommentsOf returns the comments on document id in their original order.
func CommentsOf(id string, comments []domain.Comment) []domain.Comment {
	out := []domain.Comment{}
	for _, c := range comments {
		if c.DocumentID == id {
			out = append(out, c)
		}
	}
	return out
}
