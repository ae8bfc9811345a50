package database

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostRepository handles statements against the posts table
type PostRepository struct {
	q      Querier
	tables Tables
}

func NewPostRepository(q Querier, tables Tables) *PostRepository {
	return &PostRepository{q: q, tables: tables}
}

// Insert writes a new post row and returns its generated ID
func (r *PostRepository) Insert(ctx context.Context, post *Post) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			post_author, post_date, post_date_gmt, post_content, post_title, post_excerpt,
			post_status, comment_status, post_name, to_ping, pinged,
			post_modified, post_modified_gmt, post_content_filtered,
			post_parent, guid, menu_order, post_type, post_mime_type, comment_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', '', ?, ?, '', 0, '', 0, ?, '', ?)
	`, r.tables.Posts())

	result, err := r.q.ExecContext(ctx, query,
		post.AuthorID, formatLocal(post.Date), formatGMT(post.Date),
		post.Content, post.Title, post.Excerpt,
		post.Status, post.CommentStatus, post.Name,
		formatLocal(post.Date), formatGMT(post.Date),
		cmp.Or(post.Type, PostTypePost), post.CommentCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted post ID: %w", err)
	}

	return id, nil
}

func (r *PostRepository) SetGUID(ctx context.Context, id int64, guid string) error {
	query := fmt.Sprintf(`UPDATE %s SET guid = ? WHERE ID = ?`, r.tables.Posts())

	if _, err := r.q.ExecContext(ctx, query, guid, id); err != nil {
		return fmt.Errorf("failed to set post GUID: %w", err)
	}

	return nil
}

// Get retrieves a post by ID, returning nil when it does not exist
func (r *PostRepository) Get(ctx context.Context, id int64) (*Post, error) {
	query := fmt.Sprintf(`
		SELECT ID, post_author, post_date, post_date_gmt, post_content, post_title, post_excerpt,
		       post_status, comment_status, post_name, guid, post_type, comment_count
		FROM %s
		WHERE ID = ?
	`, r.tables.Posts())

	var (
		post          Post
		date, dateGMT string
	)
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.AuthorID, &date, &dateGMT, &post.Content, &post.Title, &post.Excerpt,
		&post.Status, &post.CommentStatus, &post.Name, &post.GUID, &post.Type, &post.CommentCount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	post.Date = parseStored(date, time.Local)
	post.DateGMT = parseStored(dateGMT, time.UTC)

	return &post, nil
}

// IDsOlderThan returns the IDs of posts dated strictly before cutoff
func (r *PostRepository) IDsOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error) {
	query := fmt.Sprintf(`
		SELECT ID FROM %s
		WHERE post_date < ? AND post_type = ?
		ORDER BY ID
	`, r.tables.Posts())

	rows, err := r.q.QueryContext(ctx, query, formatLocal(cutoff), PostTypePost)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts older than cutoff: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return ids, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE ID = ?`, r.tables.Posts())

	if _, err := r.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return nil
}

// ListContent returns the content and excerpt of every post
func (r *PostRepository) ListContent(ctx context.Context) ([]PostContent, error) {
	query := fmt.Sprintf(`
		SELECT ID, post_content, post_excerpt FROM %s
		WHERE post_type = ?
		ORDER BY ID
	`, r.tables.Posts())

	rows, err := r.q.QueryContext(ctx, query, PostTypePost)
	if err != nil {
		return nil, fmt.Errorf("failed to list post content: %w", err)
	}
	defer rows.Close()

	var posts []PostContent
	for rows.Next() {
		var post PostContent
		if err := rows.Scan(&post.ID, &post.Content, &post.Excerpt); err != nil {
			return nil, fmt.Errorf("failed to scan post content: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) UpdateContent(ctx context.Context, id int64, content, excerpt string) error {
	query := fmt.Sprintf(`UPDATE %s SET post_content = ?, post_excerpt = ? WHERE ID = ?`, r.tables.Posts())

	if _, err := r.q.ExecContext(ctx, query, content, excerpt, id); err != nil {
		return fmt.Errorf("failed to update post content: %w", err)
	}

	return nil
}

// Count returns the number of rows of type post. It doubles as a
// reachability check for the posts table.
func (r *PostRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE post_type = ?`, r.tables.Posts())

	var count int
	if err := r.q.QueryRowContext(ctx, query, PostTypePost).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}

	return count, nil
}
