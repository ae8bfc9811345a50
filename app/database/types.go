package database

import (
	"fmt"
	"time"
)

const dateTimeLayout = "2006-01-02 15:04:05"

const (
	PostStatusDraft   = "draft"
	PostStatusPublish = "publish"

	CommentStatusOpen   = "open"
	CommentStatusClosed = "closed"

	PostTypePost     = "post"
	TaxonomyCategory = "category"
)

// Tables resolves prefixed WordPress table names.
type Tables struct {
	Prefix string
}

func (t Tables) Users() string             { return t.Prefix + "users" }
func (t Tables) Posts() string             { return t.Prefix + "posts" }
func (t Tables) Comments() string          { return t.Prefix + "comments" }
func (t Tables) CommentMeta() string       { return t.Prefix + "commentmeta" }
func (t Tables) Terms() string             { return t.Prefix + "terms" }
func (t Tables) TermTaxonomy() string      { return t.Prefix + "term_taxonomy" }
func (t Tables) TermRelationships() string { return t.Prefix + "term_relationships" }

type Post struct {
	ID            int64
	AuthorID      int64
	Date          time.Time // in the importer timezone
	DateGMT       time.Time
	Content       string
	Title         string
	Excerpt       string
	Status        string
	CommentStatus string
	Name          string
	GUID          string
	Type          string
	CommentCount  int
}

// PostContent is the rewritable part of a post.
type PostContent struct {
	ID      int64
	Content string
	Excerpt string
}

type Comment struct {
	ID          int64
	PostID      int64
	Author      string
	AuthorEmail string
	AuthorURL   string
	AuthorIP    string
	Date        time.Time
	DateGMT     time.Time
	Content     string
	Approved    string
}

type Term struct {
	ID   int64
	Name string
	Slug string
	// TaxonomyID is the category term_taxonomy_id, zero when the term has none.
	TaxonomyID int64
}

// PersistenceError reports a failed write against the target schema.
type PersistenceError struct {
	Op    string
	Title string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("failed to %s for %q: %v", e.Op, e.Title, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// formatLocal renders t as wall-clock time in the importer timezone, which
// applyTimezone installs as time.Local.
func formatLocal(t time.Time) string {
	return t.In(time.Local).Format(dateTimeLayout)
}

func formatGMT(t time.Time) string {
	return t.UTC().Format(dateTimeLayout)
}

func parseStored(value string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dateTimeLayout, value, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
