package database

import (
	"context"
	"fmt"
	"time"
)

// CommentRepository handles statements against the comments and commentmeta tables
type CommentRepository struct {
	q      Querier
	tables Tables
}

func NewCommentRepository(q Querier, tables Tables) *CommentRepository {
	return &CommentRepository{q: q, tables: tables}
}

// Insert writes an approved comment bound to comment.PostID
func (r *CommentRepository) Insert(ctx context.Context, comment *Comment) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			comment_post_ID, comment_author, comment_author_email, comment_author_url, comment_author_IP,
			comment_date, comment_date_gmt, comment_content, comment_karma, comment_approved,
			comment_agent, comment_type, comment_parent, user_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, '1', '', '', 0, 0)
	`, r.tables.Comments())

	result, err := r.q.ExecContext(ctx, query,
		comment.PostID, comment.Author, comment.AuthorEmail, comment.AuthorURL, comment.AuthorIP,
		formatLocal(comment.Date), formatGMT(comment.Date), comment.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to insert comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted comment ID: %w", err)
	}

	return id, nil
}

func (r *CommentRepository) ListForPost(ctx context.Context, postID int64) ([]Comment, error) {
	query := fmt.Sprintf(`
		SELECT comment_ID, comment_post_ID, comment_author, comment_author_email, comment_author_url,
		       comment_author_IP, comment_date, comment_date_gmt, comment_content, comment_approved
		FROM %s
		WHERE comment_post_ID = ?
		ORDER BY comment_ID
	`, r.tables.Comments())

	rows, err := r.q.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var (
			comment       Comment
			date, dateGMT string
		)
		err := rows.Scan(
			&comment.ID, &comment.PostID, &comment.Author, &comment.AuthorEmail, &comment.AuthorURL,
			&comment.AuthorIP, &date, &dateGMT, &comment.Content, &comment.Approved,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comment.Date = parseStored(date, time.Local)
		comment.DateGMT = parseStored(dateGMT, time.UTC)
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}

	return comments, nil
}

func (r *CommentRepository) DeleteForPost(ctx context.Context, postID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE comment_post_ID = ?`, r.tables.Comments())

	if _, err := r.q.ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}

	return nil
}

// PurgeOrphanedMeta removes comment metadata whose comment no longer exists
func (r *CommentRepository) PurgeOrphanedMeta(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE comment_id NOT IN (SELECT comment_ID FROM %s)
	`, r.tables.CommentMeta(), r.tables.Comments())

	result, err := r.q.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge orphaned comment metadata: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get purged row count: %w", err)
	}

	return purged, nil
}

func (r *CommentRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Comments())

	var count int
	if err := r.q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get comment count: %w", err)
	}

	return count, nil
}
