package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/domain"
)

// InsertAuditLog persists one audit entry.
func (s *Store) InsertAuditLog(ctx context.Context, l *domain.AuditLog) error {
	l.ID = uuid.New()
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, user_role, action, resource, resource_id,
		 details, ip_address, user_agent, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.UserID, l.UserRole, l.Action, l.Resource, l.ResourceID,
		l.Details, l.IPAddress, l.UserAgent, l.Timestamp)
	return err
}

// ListAuditLogs returns entries newest-first, optionally filtered by action.
func (s *Store) ListAuditLogs(ctx context.Context, action domain.AuditAction, limit, offset int) ([]*domain.AuditLog, error) {
	query := `SELECT id, user_id, user_role, action, resource, resource_id, details,
		ip_address, user_agent, occurred_at FROM audit_logs`
	args := []interface{}{limit, offset}
	if action != "" {
		query += ` WHERE action = $3`
		args = append(args, action)
	}
	query += ` ORDER BY occurred_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		l := &domain.AuditLog{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.UserRole, &l.Action, &l.Resource,
			&l.ResourceID, &l.Details, &l.IPAddress, &l.UserAgent, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
