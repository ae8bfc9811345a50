package retention

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/mt2wp/app/content"
	"github.com/lysyi3m/mt2wp/app/database"
	"github.com/lysyi3m/mt2wp/app/importer"
)

func setup(t *testing.T) (*Cleaner, *importer.Importer, *database.DB) {
	t.Helper()

	db, err := database.Open(context.Background(), database.Options{
		Driver: database.DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "wordpress.db"),
		Prefix: "wp_",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.Bootstrap(db)
	require.NoError(t, err)

	return NewCleaner(db), importer.New(db, "new.example.com"), db
}

func post(title string, year int, status content.Status, categories ...string) *content.Post {
	date := time.Date(year, 3, 1, 12, 0, 0, 0, time.UTC)
	return &content.Post{
		Title:      title,
		Body:       "body",
		Status:     status,
		Date:       date,
		Categories: categories,
		Comments: []content.Comment{
			{Author: "a", Body: "first", Date: date},
			{Author: "b", Body: "second", Date: date},
		},
	}
}

func TestDeletePostsOlderThan(t *testing.T) {
	ctx := context.Background()
	cleaner, imp, db := setup(t)
	repos := db.Repositories()

	oldID, err := imp.ImportPost(ctx, post("Old", 2001, content.StatusPublished, "News"))
	require.NoError(t, err)
	_, err = imp.ImportPost(ctx, post("Older", 1999, content.StatusDraft, "News"))
	require.NoError(t, err)
	keepID, err := imp.ImportPost(ctx, post("New", 2010, content.StatusPublished, "News"))
	require.NoError(t, err)

	comments, err := repos.Comments.ListForPost(ctx, oldID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO wp_commentmeta (comment_id, meta_key, meta_value) VALUES (?, 'akismet', 'ok')`, comments[0].ID)
	require.NoError(t, err)

	cutoff := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	deleted, err := cleaner.DeletePostsOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := repos.Posts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	remaining, err := repos.Comments.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	links, err := repos.Terms.LinksForPost(ctx, oldID)
	require.NoError(t, err)
	assert.Empty(t, links)

	var meta int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wp_commentmeta`).Scan(&meta))
	assert.Zero(t, meta)

	kept, err := repos.Posts.Get(ctx, keepID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestDeletePostsOlderThanIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cleaner, imp, _ := setup(t)

	_, err := imp.ImportPost(ctx, post("Old", 2001, content.StatusPublished))
	require.NoError(t, err)

	cutoff := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := cleaner.DeletePostsOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := cleaner.DeletePostsOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestDeletePostsOlderThanIsStrict(t *testing.T) {
	ctx := context.Background()
	cleaner, imp, _ := setup(t)

	p := post("Boundary", 2005, content.StatusPublished)
	_, err := imp.ImportPost(ctx, p)
	require.NoError(t, err)

	deleted, err := cleaner.DeletePostsOlderThan(ctx, p.Date)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestTermCountsAfterDeletion(t *testing.T) {
	ctx := context.Background()
	cleaner, imp, db := setup(t)
	terms := db.Repositories().Terms

	_, err := imp.ImportPost(ctx, post("Old", 2001, content.StatusPublished, "News", "Tech"))
	require.NoError(t, err)
	_, err = imp.ImportPost(ctx, post("New", 2010, content.StatusPublished, "News"))
	require.NoError(t, err)
	_, err = imp.ImportPost(ctx, post("Draft", 2011, content.StatusDraft, "News"))
	require.NoError(t, err)
	require.NoError(t, imp.RecomputeTermCounts(ctx))

	_, err = cleaner.DeletePostsOlderThan(ctx, time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, imp.RecomputeTermCounts(ctx))

	ids, err := terms.TaxonomyIDs(ctx, database.TaxonomyCategory)
	require.NoError(t, err)
	for _, id := range ids {
		stored, err := terms.StoredCount(ctx, id)
		require.NoError(t, err)
		actual, err := terms.CountPublished(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, actual, stored, "term_taxonomy_id %d", id)
	}

	news, err := terms.FindByName(ctx, "News")
	require.NoError(t, err)
	newsCount, err := terms.StoredCount(ctx, news.TaxonomyID)
	require.NoError(t, err)
	assert.Equal(t, 1, newsCount)
}

func TestDeletePostsOlderThanStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	cleaner, imp, db := setup(t)

	_, err := imp.ImportPost(ctx, post("Old", 2001, content.StatusPublished))
	require.NoError(t, err)
	_, err = imp.ImportPost(ctx, post("Older", 2002, content.StatusPublished))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `DROP TABLE wp_comments`)
	require.NoError(t, err)

	deleted, err := cleaner.DeletePostsOlderThan(ctx, time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Zero(t, deleted)

	var persistErr *database.PersistenceError
	require.True(t, errors.As(err, &persistErr), "expected PersistenceError, got %v", err)

	count, err := db.Repositories().Posts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeletePostsOlderThanKeepsEarlierDeletions(t *testing.T) {
	ctx := context.Background()
	cleaner, imp, db := setup(t)
	repos := db.Repositories()

	firstID, err := imp.ImportPost(ctx, post("First", 1999, content.StatusPublished, "News"))
	require.NoError(t, err)
	lockedID, err := imp.ImportPost(ctx, post("Locked", 2000, content.StatusPublished, "News"))
	require.NoError(t, err)
	lastID, err := imp.ImportPost(ctx, post("Last", 2001, content.StatusPublished, "News"))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TRIGGER wp_posts_locked BEFORE DELETE ON wp_posts
		WHEN OLD.ID = %d
		BEGIN
			SELECT RAISE(ABORT, 'post is locked');
		END`, lockedID))
	require.NoError(t, err)

	deleted, err := cleaner.DeletePostsOlderThan(ctx, time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, deleted)

	var persistErr *database.PersistenceError
	require.True(t, errors.As(err, &persistErr), "expected PersistenceError, got %v", err)

	first, err := repos.Posts.Get(ctx, firstID)
	require.NoError(t, err)
	assert.Nil(t, first)

	// The failed transaction restores the links and comments it removed.
	links, err := repos.Terms.LinksForPost(ctx, lockedID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	comments, err := repos.Comments.ListForPost(ctx, lockedID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	last, err := repos.Posts.Get(ctx, lastID)
	require.NoError(t, err)
	assert.NotNil(t, last)

	links, err = repos.Terms.LinksForPost(ctx, lastID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	count, err := repos.Posts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeletePostsOlderThanComparesInstants(t *testing.T) {
	ctx := context.Background()
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	previous := time.Local
	time.Local = newYork
	t.Cleanup(func() { time.Local = previous })

	cleaner, imp, _ := setup(t)

	p := post("New Year's Eve", 2009, content.StatusPublished)
	p.Date = time.Date(2009, 12, 31, 20, 0, 0, 0, newYork)
	_, err = imp.ImportPost(ctx, p)
	require.NoError(t, err)

	deleted, err := cleaner.DeletePostsOlderThan(ctx, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = cleaner.DeletePostsOlderThan(ctx, time.Date(2010, 1, 1, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
