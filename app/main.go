package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lysyi3m/mt2wp/app/api"
	"github.com/lysyi3m/mt2wp/app/asset"
	"github.com/lysyi3m/mt2wp/app/cfg"
	"github.com/lysyi3m/mt2wp/app/content"
	"github.com/lysyi3m/mt2wp/app/database"
	"github.com/lysyi3m/mt2wp/app/feed"
	"github.com/lysyi3m/mt2wp/app/importer"
	"github.com/lysyi3m/mt2wp/app/mtif"
	"github.com/lysyi3m/mt2wp/app/retention"
	"github.com/lysyi3m/mt2wp/app/tasks"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting mt2wp", "version", appCfg.Version, "import_posts", appCfg.ImportPosts, "import_assets", appCfg.ImportAssets)

	result, err := run(ctx, appCfg)
	if err != nil {
		slog.Error("An error occurred during the migration process", "error", err)
		stop()
		os.Exit(1)
	}

	fmt.Printf("Successfully imported %s posts and %s assets\n",
		formatCount(result.PostsTransferred), formatCount(result.AssetsTransferred))
}

func setupLogger(appCfg *cfg.Cfg) {
	level := slog.LevelWarn
	if appCfg.Verbose {
		level = slog.LevelInfo
	}
	if appCfg.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context, appCfg *cfg.Cfg) (tasks.Result, error) {
	if !appCfg.ImportPosts && !appCfg.ImportAssets {
		slog.Warn("Nothing to do, enable import_posts or import_assets")
		return tasks.NewResult(), nil
	}

	db, err := database.Open(ctx, database.Options{
		Driver:   database.Driver(appCfg.DBDriver),
		Host:     appCfg.DBHost,
		Port:     appCfg.DBPort,
		User:     appCfg.DBUser,
		Password: appCfg.DBPassword,
		Name:     appCfg.DBName,
		Prefix:   appCfg.DBPrefix,
	})
	if err != nil {
		setting := "wp_db_host"
		if appCfg.DBDriver == string(database.DriverSQLite) {
			setting = "wp_db_name"
		}
		return tasks.NewResult(), &cfg.ConfigError{Setting: setting, Err: err}
	}
	defer db.Close()

	if appCfg.BootstrapSchema {
		version, dirty, err := database.Bootstrap(db)
		if err != nil {
			return tasks.NewResult(), err
		}
		slog.Info("Schema ready", "version", version, "dirty", dirty)
	}

	if err := preflight(ctx, appCfg, db); err != nil {
		return tasks.NewResult(), err
	}

	var source content.Source
	if appCfg.ImportPosts {
		src, closeSource, err := openSource(appCfg)
		if err != nil {
			return tasks.NewResult(), err
		}
		defer closeSource()
		source = src
	}

	imp := importer.New(db, appCfg.WPDomain)
	progress := tasks.NewProgress()

	fetcher := asset.NewHTTPFetcher(&http.Client{}, asset.FetcherConfig{
		Domain:    appCfg.MTDomain,
		Hidden:    appCfg.MTDomainHidden,
		Address:   appCfg.MTAddress,
		UserAgent: appCfg.UserAgent,
		Timeout:   appCfg.FetchTimeout,
		Rate:      appCfg.FetchRate,
		Retries:   appCfg.FetchRetries,
	})
	migrator := asset.NewMigrator(db.Repositories().Posts, imp, fetcher, asset.OSFilesystem{}, asset.MigratorConfig{
		SourceDomain:   appCfg.MTDomain,
		Root:           appCfg.WPRoot,
		Workers:        appCfg.AssetWorkers,
		OnAssetWritten: progress.AssetWritten,
	})

	if appCfg.StatusAddr != "" {
		shutdown := startStatusServer(appCfg, db, progress)
		defer shutdown()
	}

	pipeline := tasks.NewPipeline(tasks.PipelineConfig{
		ImportPosts:  appCfg.ImportPosts,
		ImportAssets: appCfg.ImportAssets,
		DeleteBefore: appCfg.DeleteBefore,
	}, source, imp, retention.NewCleaner(db), migrator, progress)

	return pipeline.Run(ctx)
}

// preflight checks the target schema and the export before anything is
// written.
func preflight(ctx context.Context, appCfg *cfg.Cfg, db *database.DB) error {
	if _, err := db.Repositories().Posts.Count(ctx); err != nil {
		return &cfg.ConfigError{
			Setting: "wp_db_prefix",
			Err:     fmt.Errorf("unable to find WordPress posts table at %s: %w", db.Tables.Posts(), err),
		}
	}

	if !appCfg.ImportPosts {
		return nil
	}

	src, closeSource, err := openSource(appCfg)
	if err != nil {
		return err
	}
	defer closeSource()

	if _, err := src.Next(); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg.ConfigError{
				Setting: "mt_mtif_file",
				Err:     fmt.Errorf("export at %q does not contain any posts", appCfg.SourceFile),
			}
		}
		return err
	}

	return nil
}

func openSource(appCfg *cfg.Cfg) (content.Source, func(), error) {
	switch appCfg.SourceFormat {
	case cfg.SourceFormatFeed:
		reader, err := feed.Open(appCfg.SourceFile, appCfg.Location)
		if err != nil {
			return nil, nil, &cfg.ConfigError{Setting: "mt_mtif_file", Err: err}
		}
		return reader, func() {}, nil
	default:
		parser, err := mtif.Open(appCfg.SourceFile, appCfg.SourceEncoding, appCfg.Location)
		if err != nil {
			return nil, nil, &cfg.ConfigError{Setting: "mt_mtif_file", Err: err}
		}
		return parser, func() { parser.Close() }, nil
	}
}

func startStatusServer(appCfg *cfg.Cfg, db *database.DB, progress *tasks.Progress) func() {
	handler := api.NewHandler(db.Repositories().Posts, progress, appCfg.Version)

	httpServer := &http.Server{
		Addr:         appCfg.StatusAddr,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Status server started", "addr", appCfg.StatusAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Status server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Status server shutdown error", "error", err)
		}
	}
}

func formatCount(n int) string {
	if n == tasks.NotAttempted {
		return "no"
	}
	return humanize.Comma(int64(n))
}
