package asset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/mt2wp/app/database"
)

type PostLister interface {
	ListContent(ctx context.Context) ([]database.PostContent, error)
}

type URLRewriter interface {
	RewriteAssetURLs(ctx context.Context, postID int64, body, excerpt, sourceDomain string) (bool, error)
}

type MigratorConfig struct {
	SourceDomain string
	Root         string
	Workers      int
	// OnAssetWritten, when set, is called once per file written.
	OnAssetWritten func()
}

// Migrator copies source-hosted assets referenced by imported posts into
// the target document root and points the posts at their new location.
type Migrator struct {
	posts    PostLister
	rewriter URLRewriter
	fetcher  Fetcher
	fs       Filesystem
	config   MigratorConfig
}

func NewMigrator(posts PostLister, rewriter URLRewriter, fetcher Fetcher, fs Filesystem, config MigratorConfig) *Migrator {
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &Migrator{
		posts:    posts,
		rewriter: rewriter,
		fetcher:  fetcher,
		fs:       fs,
		config:   config,
	}
}

// Run migrates the assets of every post and returns the number of files
// written. Individual fetch or write failures are logged and skipped.
func (m *Migrator) Run(ctx context.Context) (int, error) {
	posts, err := m.posts.ListContent(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list posts: %w", err)
	}

	var written atomic.Int64
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return int(written.Load()), err
		}

		refs := m.sourceReferences(post)
		if len(refs) == 0 {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.config.Workers)

		for _, ref := range refs {
			g.Go(func() error {
				if m.migrate(gctx, post.ID, ref) {
					written.Add(1)
					if m.config.OnAssetWritten != nil {
						m.config.OnAssetWritten()
					}
				}
				return nil
			})
		}
		// Workers log their own failures and never return an error.
		_ = g.Wait()

		applied, err := m.rewriter.RewriteAssetURLs(ctx, post.ID, post.Content, post.Excerpt, m.config.SourceDomain)
		if err != nil {
			slog.Warn("Failed to rewrite asset URLs", "post_id", post.ID, "error", err)
			continue
		}
		slog.Debug("Asset URLs rewritten", "post_id", post.ID, "changed", applied)
	}

	return int(written.Load()), nil
}

// sourceReferences returns the migratable references in a post that are
// hosted on the source domain.
func (m *Migrator) sourceReferences(post database.PostContent) []Reference {
	var refs []Reference
	seen := make(map[string]bool)

	for _, text := range []string{post.Content, post.Excerpt} {
		for _, ref := range FindReferences(text) {
			if seen[ref.URL] || !ref.MatchesDomain(m.config.SourceDomain) {
				continue
			}
			seen[ref.URL] = true

			if _, ok := ref.RemotePath(); !ok {
				slog.Debug("Asset has no remote path, skipping", "post_id", post.ID, "url", ref.URL)
				continue
			}
			refs = append(refs, ref)
		}
	}

	return refs
}

// migrate fetches one asset and writes it unless it already exists.
// It reports whether a file was written.
func (m *Migrator) migrate(ctx context.Context, postID int64, ref Reference) bool {
	dest, err := m.destination(ref)
	if err != nil {
		slog.Warn("Skipping asset", "post_id", postID, "url", ref.URL, "error", err)
		return false
	}

	exists, err := m.fs.Exists(dest)
	if err != nil {
		slog.Warn("Failed to check asset destination", "path", dest, "error", err)
		return false
	}
	if exists {
		slog.Info("Asset already migrated", "url", ref.URL, "path", dest)
		return false
	}

	data, err := m.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		slog.Warn("Failed to fetch asset", "post_id", postID, "url", ref.URL, "error", err)
		return false
	}

	ok, err := m.fs.WriteFileIfAbsent(dest, data)
	if err != nil {
		slog.Warn("Failed to write asset", "path", dest, "error", err)
		return false
	}
	if !ok {
		slog.Info("Asset already migrated", "url", ref.URL, "path", dest)
		return false
	}

	slog.Info("Asset migrated",
		"post_id", postID,
		"url", ref.URL,
		"path", dest,
		"size", humanize.Bytes(uint64(len(data))))

	return true
}

// destination maps a reference to {root}/{remote path}/{filename}, refusing
// anything that would resolve outside root.
func (m *Migrator) destination(ref Reference) (string, error) {
	remotePath, ok := ref.RemotePath()
	if !ok {
		return "", fmt.Errorf("asset has no remote path")
	}
	if ref.Filename == "" {
		return "", fmt.Errorf("asset has no filename")
	}

	root := filepath.Clean(m.config.Root)
	dest := filepath.Join(root, filepath.FromSlash(remotePath), ref.Filename)

	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("destination %s escapes %s", dest, root)
	}

	return dest, nil
}
