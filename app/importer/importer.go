package importer

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lysyi3m/mt2wp/app/content"
	"github.com/lysyi3m/mt2wp/app/database"
)

// DefaultAuthorID is the WordPress administrator that owns posts whose
// author has no matching login.
const DefaultAuthorID int64 = 1

// Importer writes parsed posts into the WordPress schema.
type Importer struct {
	db           *database.DB
	targetDomain string
}

func New(db *database.DB, targetDomain string) *Importer {
	return &Importer{
		db:           db,
		targetDomain: targetDomain,
	}
}

// ResolveAuthor looks up a user by login. found is false when no user
// matches, and callers fall back to DefaultAuthorID.
func (i *Importer) ResolveAuthor(ctx context.Context, login string) (int64, bool, error) {
	return i.db.Repositories().Users.FindByLogin(ctx, login)
}

// ImportPost writes post, its category links and comments in a single
// transaction and returns the new post ID. Only a failed post insert is
// returned as an error; comment and term-link failures are logged and the
// post is still committed.
func (i *Importer) ImportPost(ctx context.Context, post *content.Post) (int64, error) {
	var postID int64

	err := i.db.InTx(ctx, func(repos *database.Repositories) error {
		row := &database.Post{
			AuthorID:      i.authorID(ctx, repos, post.Author),
			Date:          post.Date,
			Content:       post.FullBody(),
			Title:         post.Title,
			Excerpt:       post.Excerpt,
			Status:        postStatus(post.Status),
			CommentStatus: commentStatus(post.AllowComments),
			Name:          cmp.Or(post.Basename, Slugify(post.Title)),
			Type:          database.PostTypePost,
			CommentCount:  len(post.Comments),
		}

		id, err := repos.Posts.Insert(ctx, row)
		if err != nil {
			return &database.PersistenceError{Op: "insert post", Title: post.Title, Err: err}
		}

		if err := repos.Posts.SetGUID(ctx, id, i.guid(id)); err != nil {
			return &database.PersistenceError{Op: "set post GUID", Title: post.Title, Err: err}
		}

		i.linkCategories(ctx, repos, id, post)
		i.insertComments(ctx, repos, id, post)

		postID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	return postID, nil
}

// ResolveOrCreateTerm returns the ID of the term named exactly name,
// creating it as a top-level category when missing.
func (i *Importer) ResolveOrCreateTerm(ctx context.Context, name string) (int64, error) {
	var termID int64

	err := i.db.InTx(ctx, func(repos *database.Repositories) error {
		term, err := resolveTerm(ctx, repos, name)
		if err != nil {
			return err
		}
		termID = term.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	return termID, nil
}

// RecomputeTermCounts sets every category count to the number of published
// posts linked to it. Other taxonomies such as link_category are left alone.
// A failure on one term is logged and the rest are still recomputed.
func (i *Importer) RecomputeTermCounts(ctx context.Context) error {
	terms := i.db.Repositories().Terms

	ids, err := terms.TaxonomyIDs(ctx, database.TaxonomyCategory)
	if err != nil {
		return fmt.Errorf("failed to list terms: %w", err)
	}

	failed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		count, err := terms.CountPublished(ctx, id)
		if err == nil {
			err = terms.SetCount(ctx, id, count)
		}
		if err != nil {
			failed++
			slog.Warn("Failed to recompute term count", "term_taxonomy_id", id, "error", err)
		}
	}

	slog.Debug("Term counts recomputed", "terms", len(ids), "failed", failed)

	return nil
}

// RewriteAssetURLs points every http(s) URL on sourceDomain (with or without
// "www.") in body and excerpt at the target domain and persists the result.
// applied reports whether anything changed.
func (i *Importer) RewriteAssetURLs(ctx context.Context, postID int64, body, excerpt, sourceDomain string) (bool, error) {
	bare := sourceDomain
	if len(bare) >= 4 && strings.EqualFold(bare[:4], "www.") {
		bare = bare[4:]
	}

	pattern, err := regexp.Compile(`(?i)https?://(?:www\.)?` + regexp.QuoteMeta(bare) + `/`)
	if err != nil {
		return false, fmt.Errorf("failed to build source domain pattern: %w", err)
	}

	base := "http://" + i.targetDomain + "/"
	newBody := pattern.ReplaceAllLiteralString(body, base)
	newExcerpt := pattern.ReplaceAllLiteralString(excerpt, base)

	if err := i.db.Repositories().Posts.UpdateContent(ctx, postID, newBody, newExcerpt); err != nil {
		return false, &database.PersistenceError{Op: "rewrite asset URLs", Err: err}
	}

	return newBody != body || newExcerpt != excerpt, nil
}

func (i *Importer) authorID(ctx context.Context, repos *database.Repositories, login string) int64 {
	if login == "" {
		return DefaultAuthorID
	}

	id, found, err := repos.Users.FindByLogin(ctx, login)
	if err != nil {
		slog.Warn("Failed to resolve author, using default", "author", login, "error", err)
		return DefaultAuthorID
	}
	if !found {
		slog.Debug("Author not found, using default", "author", login)
		return DefaultAuthorID
	}

	return id
}

func (i *Importer) linkCategories(ctx context.Context, repos *database.Repositories, postID int64, post *content.Post) {
	var names []string
	if post.PrimaryCategory != "" {
		names = append(names, post.PrimaryCategory)
	}
	names = append(names, post.SecondaryCategories()...)

	for _, name := range names {
		term, err := resolveTerm(ctx, repos, name)
		if err != nil {
			slog.Warn("Failed to resolve category", "post", post.Title, "category", name, "error", err)
			continue
		}

		if err := repos.Terms.Link(ctx, postID, term.TaxonomyID); err != nil {
			slog.Warn("Failed to link category", "post", post.Title, "category", name, "error", err)
		}
	}
}

func (i *Importer) insertComments(ctx context.Context, repos *database.Repositories, postID int64, post *content.Post) {
	for n, comment := range post.Comments {
		_, err := repos.Comments.Insert(ctx, &database.Comment{
			PostID:      postID,
			Author:      comment.Author,
			AuthorEmail: comment.Email,
			AuthorURL:   comment.URL,
			AuthorIP:    comment.IP,
			Date:        comment.Date,
			Content:     comment.Body,
		})
		if err != nil {
			slog.Warn("Failed to insert comment", "post", post.Title, "comment", n+1, "error", err)
		}
	}
}

func (i *Importer) guid(postID int64) string {
	return fmt.Sprintf("http://%s/?p=%d", i.targetDomain, postID)
}

// resolveTerm finds the term named name or creates it, making sure it has a
// category taxonomy row.
func resolveTerm(ctx context.Context, repos *database.Repositories, name string) (*database.Term, error) {
	term, err := repos.Terms.FindByName(ctx, name)
	if err != nil {
		return nil, &database.PersistenceError{Op: "find term", Title: name, Err: err}
	}

	if term == nil {
		id, err := repos.Terms.Insert(ctx, name, Slugify(name))
		if err != nil {
			return nil, &database.PersistenceError{Op: "create term", Title: name, Err: err}
		}
		term = &database.Term{ID: id, Name: name, Slug: Slugify(name)}
		slog.Debug("Term created", "name", name, "term_id", id)
	}

	if term.TaxonomyID == 0 {
		ttID, err := repos.Terms.AddCategory(ctx, term.ID)
		if err != nil {
			return nil, &database.PersistenceError{Op: "create term taxonomy", Title: name, Err: err}
		}
		term.TaxonomyID = ttID
	}

	return term, nil
}

func postStatus(status content.Status) string {
	if status == content.StatusDraft {
		return database.PostStatusDraft
	}
	return database.PostStatusPublish
}

func commentStatus(allowed bool) string {
	if allowed {
		return database.CommentStatusOpen
	}
	return database.CommentStatusClosed
}
