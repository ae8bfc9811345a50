package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/mt2wp/app/database"
)

// Cleaner removes previously imported posts older than a cutoff.
type Cleaner struct {
	db *database.DB
}

func NewCleaner(db *database.DB) *Cleaner {
	return &Cleaner{db: db}
}

// DeletePostsOlderThan deletes every post dated strictly before cutoff,
// one transaction per post: term links, then comments, then the post row.
// The first failed deletion stops the batch; the posts removed before it
// are still counted. Orphaned comment metadata is purged afterwards in
// either case. Term counts are left for the caller to recompute.
func (c *Cleaner) DeletePostsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := c.db.Repositories().Posts.IDsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to select posts for deletion: %w", err)
	}

	slog.Debug("Posts selected for deletion", "cutoff", cutoff, "count", len(ids))

	deleted := 0
	var batchErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			batchErr = err
			break
		}

		if err := c.deletePost(ctx, id); err != nil {
			batchErr = err
			break
		}
		deleted++
	}

	purged, err := c.db.Repositories().Comments.PurgeOrphanedMeta(ctx)
	if err != nil {
		batchErr = errors.Join(batchErr, &database.PersistenceError{Op: "purge orphaned comment metadata", Err: err})
	} else if purged > 0 {
		slog.Debug("Orphaned comment metadata purged", "rows", purged)
	}

	return deleted, batchErr
}

func (c *Cleaner) deletePost(ctx context.Context, id int64) error {
	return c.db.InTx(ctx, func(repos *database.Repositories) error {
		if err := repos.Terms.UnlinkPost(ctx, id); err != nil {
			return &database.PersistenceError{Op: fmt.Sprintf("delete term links of post %d", id), Err: err}
		}
		if err := repos.Comments.DeleteForPost(ctx, id); err != nil {
			return &database.PersistenceError{Op: fmt.Sprintf("delete comments of post %d", id), Err: err}
		}
		if err := repos.Posts.Delete(ctx, id); err != nil {
			return &database.PersistenceError{Op: fmt.Sprintf("delete post %d", id), Err: err}
		}
		return nil
	})
}
