package content

import (
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// MoreSeparator joins the body and extended body the way WordPress splits teasers.
const MoreSeparator = "<!--more-->"

type Post struct {
	Title           string
	Body            string
	ExtendedBody    string
	Excerpt         string
	Basename        string // URL slug
	Status          Status
	Author          string // empty when the export has no author
	Date            time.Time
	AllowComments   bool
	PrimaryCategory string
	Categories      []string
	Comments        []Comment
}

type Comment struct {
	Author string
	Email  string
	URL    string
	IP     string
	Body   string
	Date   time.Time
}

// Source yields posts one at a time. Next returns io.EOF once exhausted.
type Source interface {
	Next() (*Post, error)
}

func (p *Post) FullBody() string {
	if strings.TrimSpace(p.ExtendedBody) == "" {
		return p.Body
	}
	return p.Body + "\n" + MoreSeparator + "\n" + p.ExtendedBody
}

// SecondaryCategories returns the categories other than the primary one,
// deduplicated and in export order.
func (p *Post) SecondaryCategories() []string {
	seen := map[string]bool{p.PrimaryCategory: true}
	var out []string
	for _, c := range p.Categories {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
