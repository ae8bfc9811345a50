package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverMySQL  Driver = "mysql"
	DriverSQLite Driver = "sqlite"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

type Options struct {
	Driver   Driver
	Host     string
	Port     int
	User     string
	Password string
	// Name is the schema name for mysql and the database file for sqlite.
	Name   string
	Prefix string
}

// DB is a connection to a WordPress-shaped target schema.
type DB struct {
	*sql.DB
	Driver Driver
	Tables Tables
}

func Open(ctx context.Context, opts Options) (*DB, error) {
	if !prefixPattern.MatchString(opts.Prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", opts.Prefix)
	}

	var (
		sqlDB *sql.DB
		err   error
	)

	switch opts.Driver {
	case DriverMySQL:
		sqlDB, err = openMySQL(ctx, opts)
	case DriverSQLite:
		sqlDB, err = openSQLite(opts.Name)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	return &DB{
		DB:     sqlDB,
		Driver: opts.Driver,
		Tables: Tables{Prefix: opts.Prefix},
	}, nil
}

func openMySQL(ctx context.Context, opts Options) (*sql.DB, error) {
	port := opts.Port
	if port == 0 {
		port = 3306
	}

	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(opts.Host, strconv.Itoa(port))
	cfg.DBName = opts.Name
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := pingWithRetry(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql at %s: %w", cfg.Addr, err)
	}

	slog.Debug("Connected to database", "driver", DriverMySQL, "addr", cfg.Addr, "name", opts.Name)

	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection keeps transactions and plain statements on the
	// same handle, so callers must route work inside a transaction through it.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to exec pragma %q: %w", pragma, err)
		}
	}

	slog.Debug("Connected to database", "driver", DriverSQLite, "path", path)

	return db, nil
}

// Repositories returns repositories bound to the connection itself.
func (db *DB) Repositories() *Repositories {
	return NewRepositories(db.DB, db.Tables)
}

// InTx runs fn against repositories bound to a single transaction,
// committing when fn returns nil and rolling back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(NewRepositories(tx, db.Tables)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
