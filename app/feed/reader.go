package feed

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/mt2wp/app/content"
)

var ErrMissingDate = errors.New("entry has no published or updated date")

var _ content.Source = (*Reader)(nil)

// Reader adapts an RSS or Atom export to content.Source. Feeds carry no
// comments and no draft state, so every post is published without comments.
type Reader struct {
	items []*gofeed.Item
	next  int
	loc   *time.Location
}

func NewReader(r io.Reader, loc *time.Location) (*Reader, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return &Reader{
		items: feed.Items,
		loc:   cmp.Or(loc, time.Local),
	}, nil
}

func Open(filename string, loc *time.Location) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed export: %w", err)
	}
	defer f.Close()

	return NewReader(f, loc)
}

func (r *Reader) Next() (*content.Post, error) {
	for r.next < len(r.items) {
		item := r.items[r.next]
		r.next++
		if item == nil {
			continue
		}

		post, err := r.normalizeItem(item)
		if err != nil {
			return nil, fmt.Errorf("feed entry %d (%q): %w", r.next, item.Title, err)
		}
		return post, nil
	}

	return nil, io.EOF
}

func (r *Reader) normalizeItem(item *gofeed.Item) (*content.Post, error) {
	date := item.PublishedParsed
	if date == nil {
		date = item.UpdatedParsed
	}
	if date == nil {
		return nil, ErrMissingDate
	}

	post := &content.Post{
		Title:         strings.TrimSpace(item.Title),
		Body:          cmp.Or(item.Content, item.Description),
		Basename:      basename(item.Link),
		Status:        content.StatusPublished,
		Author:        extractAuthor(item),
		Date:          date.In(r.loc),
		AllowComments: true,
	}

	// Description doubles as the body when the entry has no content.
	if item.Content != "" {
		post.Excerpt = item.Description
	}

	for _, category := range item.Categories {
		if category = strings.TrimSpace(category); category != "" {
			post.Categories = append(post.Categories, category)
		}
	}
	if len(post.Categories) > 0 {
		post.PrimaryCategory = post.Categories[0]
	}

	return post, nil
}

// basename derives the permalink slug from the entry link:
// "http://example.com/archives/2002/01/hello_world.html" -> "hello_world".
func basename(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return ""
	}

	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

func extractAuthor(item *gofeed.Item) string {
	var author *gofeed.Person
	if len(item.Authors) > 0 {
		author = item.Authors[0]
	} else {
		author = item.Author
	}
	if author == nil {
		return ""
	}

	return cmp.Or(strings.TrimSpace(author.Name), strings.TrimSpace(author.Email))
}
