package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inteldesk/inteldesk/internal/domain"
)

const advisoryCols = `id, title, severity, category, description, summary, affected_products,
	refs, cve_ids, tags, author, source_url, published_date, created_at, updated_at`

// CreateAdvisory persists a new advisory.
func (s *Store) CreateAdvisory(ctx context.Context, a *domain.Advisory) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	if a.PublishedDate.IsZero() {
		a.PublishedDate = a.CreatedAt
	}

	query := `INSERT INTO advisories (id, title, severity, category, description, summary,
		affected_products, refs, cve_ids, tags, author, source_url, published_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.db.ExecContext(ctx, query, a.ID, a.Title, a.Severity, a.Category, a.Description,
		a.Summary, pq.Array(a.AffectedProducts), pq.Array(a.References), pq.Array(a.CVEIDs),
		pq.Array(a.Tags), a.Author, a.SourceURL, a.PublishedDate, a.CreatedAt, a.UpdatedAt)
	return err
}

// CreateAdvisoryIfNew inserts an advisory unless its source URL was already
// ingested. Returns true when a row was inserted.
func (s *Store) CreateAdvisoryIfNew(ctx context.Context, a *domain.Advisory) (bool, error) {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	if a.PublishedDate.IsZero() {
		a.PublishedDate = a.CreatedAt
	}

	query := `INSERT INTO advisories (id, title, severity, category, description, summary,
		affected_products, refs, cve_ids, tags, author, source_url, published_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (source_url) WHERE source_url <> '' DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, a.ID, a.Title, a.Severity, a.Category, a.Description,
		a.Summary, pq.Array(a.AffectedProducts), pq.Array(a.References), pq.Array(a.CVEIDs),
		pq.Array(a.Tags), a.Author, a.SourceURL, a.PublishedDate, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetAdvisory retrieves an advisory by id.
func (s *Store) GetAdvisory(ctx context.Context, id uuid.UUID) (*domain.Advisory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+advisoryCols+` FROM advisories WHERE id = $1`, id)
	return scanAdvisory(row)
}

// ListAdvisories returns advisories newest-first.
func (s *Store) ListAdvisories(ctx context.Context, limit, offset int) ([]*domain.Advisory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+advisoryCols+` FROM advisories ORDER BY published_date DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAdvisories(rows)
}

// SearchAdvisories matches q against title, description, and CVE ids.
func (s *Store) SearchAdvisories(ctx context.Context, q string, limit int) ([]*domain.Advisory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+advisoryCols+` FROM advisories
		 WHERE title ILIKE '%' || $1 || '%'
		    OR description ILIKE '%' || $1 || '%'
		    OR $1 ILIKE ANY (cve_ids)
		 ORDER BY published_date DESC LIMIT $2`, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAdvisories(rows)
}

// UpdateAdvisory overwrites the mutable fields of an advisory.
func (s *Store) UpdateAdvisory(ctx context.Context, a *domain.Advisory) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE advisories SET title = $1, severity = $2, category = $3, description = $4,
		 summary = $5, affected_products = $6, refs = $7, cve_ids = $8, tags = $9,
		 published_date = $10, updated_at = NOW() WHERE id = $11`,
		a.Title, a.Severity, a.Category, a.Description, a.Summary,
		pq.Array(a.AffectedProducts), pq.Array(a.References), pq.Array(a.CVEIDs),
		pq.Array(a.Tags), a.PublishedDate, a.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteAdvisory removes an advisory.
func (s *Store) DeleteAdvisory(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM advisories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func scanAdvisory(row rowScanner) (*domain.Advisory, error) {
	a := &domain.Advisory{}
	err := row.Scan(&a.ID, &a.Title, &a.Severity, &a.Category, &a.Description, &a.Summary,
		pq.Array(&a.AffectedProducts), pq.Array(&a.References), pq.Array(&a.CVEIDs),
		pq.Array(&a.Tags), &a.Author, &a.SourceURL, &a.PublishedDate, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func collectAdvisories(rows *sql.Rows) ([]*domain.Advisory, error) {
	var out []*domain.Advisory
	for rows.Next() {
		a, err := scanAdvisory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
