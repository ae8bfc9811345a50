package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type PrunePostsTask struct {
	Task
	Cutoff   time.Time
	Deleted  int
	pruner   PostPruner
	importer PostImporter
	progress *Progress
}

func NewPrunePostsTask(cutoff time.Time, pruner PostPruner, importer PostImporter, progress *Progress) *PrunePostsTask {
	return &PrunePostsTask{
		Task:     NewTask(TaskTypePrunePosts),
		Cutoff:   cutoff,
		pruner:   pruner,
		importer: importer,
		progress: progress,
	}
}

func (t *PrunePostsTask) Execute(ctx context.Context) error {
	deleted, err := t.pruner.DeletePostsOlderThan(ctx, t.Cutoff)
	t.Deleted = deleted
	t.progress.AddDeleted(deleted)
	if err != nil {
		return fmt.Errorf("failed to delete posts before %s: %w", t.Cutoff.Format(time.DateOnly), err)
	}

	if err := t.importer.RecomputeTermCounts(ctx); err != nil {
		return fmt.Errorf("failed to recompute term counts: %w", err)
	}

	slog.Info("Task completed",
		"type", "PrunedPosts",
		"duration", t.GetDuration(),
		"cutoff", t.Cutoff,
		"deleted", deleted)

	return nil
}
