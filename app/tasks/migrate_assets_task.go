package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type MigrateAssetsTask struct {
	Task
	Written  int
	migrator AssetMigrator
}

func NewMigrateAssetsTask(migrator AssetMigrator) *MigrateAssetsTask {
	return &MigrateAssetsTask{
		Task:     NewTask(TaskTypeMigrateAssets),
		migrator: migrator,
	}
}

func (t *MigrateAssetsTask) Execute(ctx context.Context) error {
	written, err := t.migrator.Run(ctx)
	t.Written = written
	if err != nil {
		return fmt.Errorf("failed to migrate assets: %w", err)
	}

	slog.Info("Task completed",
		"type", "MigratedAssets",
		"duration", t.GetDuration(),
		"written", written)

	return nil
}
