package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/mt2wp/app/tasks"
)

type stubCounter struct {
	count int
	err   error
}

func (s stubCounter) Count(ctx context.Context) (int, error) {
	return s.count, s.err
}

func get(t *testing.T, handler *Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	w := httptest.NewRecorder()
	NewServer(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestGetHealth(t *testing.T) {
	w, body := get(t, NewHandler(stubCounter{count: 12}, tasks.NewProgress(), "test"), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 12, body["posts"])
	assert.Equal(t, "test", body["version"])
}

func TestGetHealthDatabaseDown(t *testing.T) {
	w, body := get(t, NewHandler(stubCounter{err: errors.New("gone")}, tasks.NewProgress(), "test"), "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", body["status"])
}

func TestGetStats(t *testing.T) {
	progress := tasks.NewProgress()
	progress.SetPhase(string(tasks.TaskTypeImportPosts))
	progress.PostImported()
	progress.PostImported()
	progress.AssetWritten()
	progress.AddDeleted(3)

	w, body := get(t, NewHandler(stubCounter{}, progress, "test"), "/stats")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "import_posts", body["phase"])
	assert.EqualValues(t, 2, body["posts_imported"])
	assert.EqualValues(t, 1, body["assets_written"])
	assert.EqualValues(t, 3, body["posts_deleted"])
}

func TestRootListsEndpoints(t *testing.T) {
	w, body := get(t, NewHandler(stubCounter{}, tasks.NewProgress(), "test"), "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mt2wp", body["service"])
	assert.Contains(t, body["endpoints"], "stats")
}
