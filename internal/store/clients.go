package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inteldesk/inteldesk/internal/domain"
)

const clientCols = `id, client_id, name, emails, cc_emails, bcc_emails, active, created_at, updated_at`

// CreateClient persists a new distribution-list client.
func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.Active = true

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, client_id, name, emails, cc_emails, bcc_emails, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.ClientID, c.Name, pq.Array(c.Emails), pq.Array(c.CcEmails),
		pq.Array(c.BccEmails), c.Active, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetClient retrieves a client by id.
func (s *Store) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id)
	return scanClient(row)
}

// ListClients returns active clients ordered by name.
func (s *Store) ListClients(ctx context.Context) ([]*domain.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clientCols+` FROM clients WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// UpdateClient overwrites the mutable fields of a client.
func (s *Store) UpdateClient(ctx context.Context, c *domain.Client) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET name = $1, emails = $2, cc_emails = $3, bcc_emails = $4,
		 active = $5, updated_at = NOW() WHERE id = $6`,
		c.Name, pq.Array(c.Emails), pq.Array(c.CcEmails), pq.Array(c.BccEmails), c.Active, c.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// DeleteClient deactivates a client. Records are kept for audit history.
func (s *Store) DeleteClient(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func scanClient(row rowScanner) (*domain.Client, error) {
	c := &domain.Client{}
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, pq.Array(&c.Emails), pq.Array(&c.CcEmails),
		pq.Array(&c.BccEmails), &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
