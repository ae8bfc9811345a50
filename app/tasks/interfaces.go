package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/mt2wp/app/asset"
	"github.com/lysyi3m/mt2wp/app/content"
	"github.com/lysyi3m/mt2wp/app/importer"
	"github.com/lysyi3m/mt2wp/app/retention"
)

// PostImporter writes posts into the target store.
type PostImporter interface {
	ImportPost(ctx context.Context, post *content.Post) (int64, error)
	RecomputeTermCounts(ctx context.Context) error
}

// PostPruner removes previously imported posts.
type PostPruner interface {
	DeletePostsOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// AssetMigrator copies referenced assets and returns the number written.
type AssetMigrator interface {
	Run(ctx context.Context) (int, error)
}

var (
	_ PostImporter  = (*importer.Importer)(nil)
	_ PostPruner    = (*retention.Cleaner)(nil)
	_ AssetMigrator = (*asset.Migrator)(nil)
)
