package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/mt2wp/app/content"
)

type PipelineConfig struct {
	ImportPosts  bool
	ImportAssets bool
	// DeleteBefore prunes posts dated before it ahead of the import. Zero
	// disables pruning.
	DeleteBefore time.Time
}

// Pipeline runs the phases of one import in order: prune, import posts,
// migrate assets. It stops at the first failed phase.
type Pipeline struct {
	config   PipelineConfig
	source   content.Source
	importer PostImporter
	pruner   PostPruner
	migrator AssetMigrator
	progress *Progress
}

func NewPipeline(config PipelineConfig, source content.Source, importer PostImporter, pruner PostPruner, migrator AssetMigrator, progress *Progress) *Pipeline {
	if progress == nil {
		progress = NewProgress()
	}

	return &Pipeline{
		config:   config,
		source:   source,
		importer: importer,
		pruner:   pruner,
		migrator: migrator,
		progress: progress,
	}
}

func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	result := NewResult()
	defer p.progress.SetPhase("done")

	if p.config.ImportPosts && !p.config.DeleteBefore.IsZero() {
		task := NewPrunePostsTask(p.config.DeleteBefore, p.pruner, p.importer, p.progress)
		if err := p.execute(ctx, task); err != nil {
			return result, err
		}
	}

	if p.config.ImportPosts {
		task := NewImportPostsTask(p.source, p.importer, p.progress)
		if err := p.execute(ctx, task); err != nil {
			return result, err
		}
		result.PostsTransferred = task.Imported
	}

	if p.config.ImportAssets {
		task := NewMigrateAssetsTask(p.migrator)
		if err := p.execute(ctx, task); err != nil {
			return result, err
		}
		result.AssetsTransferred = task.Written
	}

	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, task TaskInterface) error {
	p.progress.SetPhase(string(task.GetType()))
	task.Start()

	slog.Debug("Task started", "type", string(task.GetType()), "id", task.GetID())

	if err := task.Execute(ctx); err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
		return err
	}

	return nil
}
