package database

import (
	"context"
	"database/sql"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

type Repositories struct {
	Posts    *PostRepository
	Comments *CommentRepository
	Terms    *TermRepository
	Users    *UserRepository
}

func NewRepositories(q Querier, tables Tables) *Repositories {
	return &Repositories{
		Posts:    NewPostRepository(q, tables),
		Comments: NewCommentRepository(q, tables),
		Terms:    NewTermRepository(q, tables),
		Users:    NewUserRepository(q, tables),
	}
}
