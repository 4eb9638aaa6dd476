// Package search provides advisory lookup by free text. The Index
// interface keeps handlers independent of the backing store, so a
// dedicated search engine can replace the SQL scan later.
package search

import (
	"context"
	"strings"

	"github.com/inteldesk/inteldesk/internal/domain"
)

// Index answers free-text advisory queries.
type Index interface {
	Search(ctx context.Context, query string, limit int) ([]*domain.Advisory, error)
}

// Backend is the store-side query the SQL index delegates to.
type Backend interface {
	SearchAdvisories(ctx context.Context, q string, limit int) ([]*domain.Advisory, error)
}

// SQLIndex matches advisories with case-insensitive pattern scans over
// title, description, and CVE identifiers.
type SQLIndex struct {
	backend Backend
}

func NewSQLIndex(backend Backend) *SQLIndex {
	return &SQLIndex{backend: backend}
}

func (i *SQLIndex) Search(ctx context.Context, query string, limit int) ([]*domain.Advisory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return i.backend.SearchAdvisories(ctx, query, limit)
}
