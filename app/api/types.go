package api

import (
	"context"

	"github.com/lysyi3m/mt2wp/app/database"
	"github.com/lysyi3m/mt2wp/app/tasks"
)

type PostCounter interface {
	Count(ctx context.Context) (int, error)
}

var _ PostCounter = (*database.PostRepository)(nil)

type Handler struct {
	posts    PostCounter
	progress *tasks.Progress
	version  string
}
