package database

import (
	"context"
	"database/sql"
	"fmt"
)

type UserRepository struct {
	q      Querier
	tables Tables
}

func NewUserRepository(q Querier, tables Tables) *UserRepository {
	return &UserRepository{q: q, tables: tables}
}

// FindByLogin returns the ID of the user with the given login.
// The second return value is false when no such user exists.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (int64, bool, error) {
	query := fmt.Sprintf(`SELECT ID FROM %s WHERE user_login = ? LIMIT 1`, r.tables.Users())

	var id int64
	err := r.q.QueryRowContext(ctx, query, login).Scan(&id)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find user: %w", err)
	}

	return id, true, nil
}
