package database

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"text/template"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Bootstrap creates the WordPress-shaped sandbox schema in a SQLite target
// and returns the resulting migration version. Real MySQL targets are never
// migrated.
func Bootstrap(db *DB) (uint, bool, error) {
	if db.Driver != DriverSQLite {
		return 0, false, fmt.Errorf("schema bootstrap is only supported for %s targets, got %s", DriverSQLite, db.Driver)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{
		MigrationsTable: db.Tables.Prefix + "schema_migrations",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(renderedFS{prefix: db.Tables.Prefix}, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	// m.Close would close the shared connection, so the instance is left
	// for the garbage collector.
	m, err := migrate.NewWithInstance("iofs", source, string(DriverSQLite), driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// renderedFS serves the embedded migrations with the table prefix
// placeholder expanded. Directories are passed through unchanged.
type renderedFS struct {
	prefix string
}

func (r renderedFS) Open(name string) (fs.File, error) {
	f, err := migrationFS.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		return f, nil
	}
	f.Close()

	tmpl, err := template.ParseFS(migrationFS, name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("failed to parse migration: %w", err)}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Prefix string }{r.prefix}); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("failed to render migration: %w", err)}
	}

	return &renderedFile{Reader: bytes.NewReader(buf.Bytes()), info: info}, nil
}

type renderedFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *renderedFile) Stat() (fs.FileInfo, error) { return f.info, nil }

func (f *renderedFile) Close() error { return nil }
