package database

import (
	"context"
	"fmt"
)

// TermRepository handles statements against terms, term_taxonomy and term_relationships
type TermRepository struct {
	q      Querier
	tables Tables
}

func NewTermRepository(q Querier, tables Tables) *TermRepository {
	return &TermRepository{q: q, tables: tables}
}

// FindByName returns the term whose name matches exactly, or nil.
// MySQL collations compare names case-insensitively, so the exact match is
// decided here rather than in SQL.
func (r *TermRepository) FindByName(ctx context.Context, name string) (*Term, error) {
	query := fmt.Sprintf(`
		SELECT t.term_id, t.name, t.slug, COALESCE(tt.term_taxonomy_id, 0)
		FROM %s t
		LEFT JOIN %s tt ON tt.term_id = t.term_id AND tt.taxonomy = ?
		WHERE t.name = ?
		ORDER BY t.term_id
	`, r.tables.Terms(), r.tables.TermTaxonomy())

	rows, err := r.q.QueryContext(ctx, query, TaxonomyCategory, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find term: %w", err)
	}
	defer rows.Close()

	var found *Term
	for rows.Next() {
		var term Term
		if err := rows.Scan(&term.ID, &term.Name, &term.Slug, &term.TaxonomyID); err != nil {
			return nil, fmt.Errorf("failed to scan term row: %w", err)
		}
		if found == nil && term.Name == name {
			found = &term
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating term rows: %w", err)
	}

	return found, nil
}

func (r *TermRepository) Insert(ctx context.Context, name, slug string) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (name, slug, term_group) VALUES (?, ?, 0)`, r.tables.Terms())

	result, err := r.q.ExecContext(ctx, query, name, slug)
	if err != nil {
		return 0, fmt.Errorf("failed to insert term: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted term ID: %w", err)
	}

	return id, nil
}

// AddCategory registers termID as a top-level category with a zero count
func (r *TermRepository) AddCategory(ctx context.Context, termID int64) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (term_id, taxonomy, description, parent, count)
		VALUES (?, ?, '', 0, 0)
	`, r.tables.TermTaxonomy())

	result, err := r.q.ExecContext(ctx, query, termID, TaxonomyCategory)
	if err != nil {
		return 0, fmt.Errorf("failed to insert term taxonomy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted term taxonomy ID: %w", err)
	}

	return id, nil
}

// TaxonomyIDForTerm returns the category term_taxonomy_id of termID, or zero
func (r *TermRepository) TaxonomyIDForTerm(ctx context.Context, termID int64) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MIN(term_taxonomy_id), 0) FROM %s
		WHERE term_id = ? AND taxonomy = ?
	`, r.tables.TermTaxonomy())

	var id int64
	if err := r.q.QueryRowContext(ctx, query, termID, TaxonomyCategory).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get term taxonomy ID: %w", err)
	}

	return id, nil
}

func (r *TermRepository) Link(ctx context.Context, postID, taxonomyID int64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (object_id, term_taxonomy_id, term_order) VALUES (?, ?, 0)
	`, r.tables.TermRelationships())

	if _, err := r.q.ExecContext(ctx, query, postID, taxonomyID); err != nil {
		return fmt.Errorf("failed to link term to post: %w", err)
	}

	return nil
}

func (r *TermRepository) UnlinkPost(ctx context.Context, postID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE object_id = ?`, r.tables.TermRelationships())

	if _, err := r.q.ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("failed to delete term links: %w", err)
	}

	return nil
}

// LinksForPost returns the term_taxonomy_ids associated with postID
func (r *TermRepository) LinksForPost(ctx context.Context, postID int64) ([]int64, error) {
	query := fmt.Sprintf(`
		SELECT term_taxonomy_id FROM %s WHERE object_id = ? ORDER BY term_taxonomy_id
	`, r.tables.TermRelationships())

	return r.queryIDs(ctx, query, postID)
}

// TaxonomyIDs returns the term_taxonomy_ids of the given taxonomy
func (r *TermRepository) TaxonomyIDs(ctx context.Context, taxonomy string) ([]int64, error) {
	query := fmt.Sprintf(`
		SELECT term_taxonomy_id FROM %s WHERE taxonomy = ? ORDER BY term_taxonomy_id
	`, r.tables.TermTaxonomy())

	return r.queryIDs(ctx, query, taxonomy)
}

// CountPublished counts published posts associated with taxonomyID
func (r *TermRepository) CountPublished(ctx context.Context, taxonomyID int64) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s tr
		INNER JOIN %s p ON p.ID = tr.object_id
		WHERE tr.term_taxonomy_id = ? AND p.post_status = ?
	`, r.tables.TermRelationships(), r.tables.Posts())

	var count int
	if err := r.q.QueryRowContext(ctx, query, taxonomyID, PostStatusPublish).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count term usage: %w", err)
	}

	return count, nil
}

func (r *TermRepository) SetCount(ctx context.Context, taxonomyID int64, count int) error {
	query := fmt.Sprintf(`UPDATE %s SET count = ? WHERE term_taxonomy_id = ?`, r.tables.TermTaxonomy())

	if _, err := r.q.ExecContext(ctx, query, count, taxonomyID); err != nil {
		return fmt.Errorf("failed to set term count: %w", err)
	}

	return nil
}

// StoredCount returns the materialized count of taxonomyID
func (r *TermRepository) StoredCount(ctx context.Context, taxonomyID int64) (int, error) {
	query := fmt.Sprintf(`SELECT count FROM %s WHERE term_taxonomy_id = ?`, r.tables.TermTaxonomy())

	var count int
	if err := r.q.QueryRowContext(ctx, query, taxonomyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get term count: %w", err)
	}

	return count, nil
}

func (r *TermRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Terms())

	var count int
	if err := r.q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get term count: %w", err)
	}

	return count, nil
}

func (r *TermRepository) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query term IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan term ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating term rows: %w", err)
	}

	return ids, nil
}
