package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/mt2wp/app/tasks"
)

func NewHandler(posts PostCounter, progress *tasks.Progress, version string) *Handler {
	return &Handler{
		posts:    posts,
		progress: progress,
		version:  version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	count, err := h.posts.Count(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "count_posts", "error", err)
		health["status"] = "unavailable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["status"] = "ok"
	health["posts"] = count

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	snapshot := h.progress.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"phase":          snapshot.Phase,
		"started_at":     snapshot.StartedAt.Format(time.RFC3339),
		"elapsed":        time.Since(snapshot.StartedAt).Round(time.Second).String(),
		"posts_deleted":  snapshot.PostsDeleted,
		"posts_imported": snapshot.PostsImported,
		"assets_written": snapshot.AssetsWritten,
	})
}
