package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lysyi3m/mt2wp/app/content"
)

type ImportPostsTask struct {
	Task
	Imported int
	source   content.Source
	importer PostImporter
	progress *Progress
}

func NewImportPostsTask(source content.Source, importer PostImporter, progress *Progress) *ImportPostsTask {
	return &ImportPostsTask{
		Task:     NewTask(TaskTypeImportPosts),
		source:   source,
		importer: importer,
		progress: progress,
	}
}

// Execute imports posts until the source is exhausted. A parse error or a
// failed post insert aborts the task; posts already imported stay committed.
func (t *ImportPostsTask) Execute(ctx context.Context) error {
	comments := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		post, err := t.source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read export after %d posts: %w", t.Imported, err)
		}

		id, err := t.importer.ImportPost(ctx, post)
		if err != nil {
			return fmt.Errorf("failed to import post %q: %w", post.Title, err)
		}

		t.Imported++
		comments += len(post.Comments)
		t.progress.PostImported()

		slog.Info("Post imported",
			"id", id,
			"title", post.Title,
			"date", post.Date,
			"comments", len(post.Comments))
	}

	if err := t.importer.RecomputeTermCounts(ctx); err != nil {
		return fmt.Errorf("failed to recompute term counts: %w", err)
	}

	slog.Info("Task completed",
		"type", "ImportedPosts",
		"duration", t.GetDuration(),
		"posts", t.Imported,
		"comments", comments)

	return nil
}
