package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inteldesk/inteldesk/internal/domain"
)

const scheduledEmailCols = `id, advisory_id, recipients_to, recipients_cc, recipients_bcc,
	subject, custom_message, scheduled_at, status, created_by, sent_at, error_message,
	retry_count, tracking_id, is_opened, opened_at, open_count, click_count, created_at, updated_at`

// CreateScheduledEmail persists a new scheduled email in pending state.
func (s *Store) CreateScheduledEmail(ctx context.Context, e *domain.ScheduledEmail) error {
	e.ID = uuid.New()
	e.Status = domain.EmailPending
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	if e.ScheduledAt.IsZero() {
		e.ScheduledAt = e.CreatedAt
	}

	query := `INSERT INTO scheduled_emails (id, advisory_id, recipients_to, recipients_cc,
		recipients_bcc, subject, custom_message, scheduled_at, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query, e.ID, e.AdvisoryID, pq.Array(e.To), pq.Array(e.Cc),
		pq.Array(e.Bcc), e.Subject, e.CustomMessage, e.ScheduledAt, e.Status, e.CreatedBy,
		e.CreatedAt, e.UpdatedAt)
	return err
}

// GetScheduledEmail retrieves a scheduled email by id.
func (s *Store) GetScheduledEmail(ctx context.Context, id uuid.UUID) (*domain.ScheduledEmail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduledEmailCols+` FROM scheduled_emails WHERE id = $1`, id)
	return scanScheduledEmail(row)
}

// GetScheduledEmailByTrackingID locates the email a tracking identifier belongs to.
func (s *Store) GetScheduledEmailByTrackingID(ctx context.Context, trackingID string) (*domain.ScheduledEmail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduledEmailCols+` FROM scheduled_emails WHERE tracking_id = $1`, trackingID)
	return scanScheduledEmail(row)
}

// ListScheduledEmails returns emails newest-first, optionally filtered by status.
func (s *Store) ListScheduledEmails(ctx context.Context, status domain.EmailStatus, limit, offset int) ([]*domain.ScheduledEmail, error) {
	query := `SELECT ` + scheduledEmailCols + ` FROM scheduled_emails`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []*domain.ScheduledEmail
	for rows.Next() {
		e, err := scanScheduledEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// ListDue returns pending emails whose scheduled time has arrived.
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledEmail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduledEmailCols+` FROM scheduled_emails
		 WHERE status = 'pending' AND scheduled_at <= $1
		 ORDER BY scheduled_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []*domain.ScheduledEmail
	for rows.Next() {
		e, err := scanScheduledEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// CancelScheduledEmail moves a pending email to cancelled. Returns
// ErrNotFound when the record is missing or no longer pending.
func (s *Store) CancelScheduledEmail(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_emails SET status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// SetTrackingID assigns a tracking identifier if the record has none, then
// returns the identifier actually stored. The conditional update makes two
// racing issuers converge on a single identifier.
func (s *Store) SetTrackingID(ctx context.Context, id uuid.UUID, trackingID string) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_emails SET tracking_id = $1, updated_at = NOW()
		 WHERE id = $2 AND tracking_id IS NULL`, trackingID, id)
	if err != nil {
		return "", err
	}

	var stored sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT tracking_id FROM scheduled_emails WHERE id = $1`, id).Scan(&stored)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return stored.String, nil
}

// MarkSent transitions a scheduled email to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_emails SET status = 'sent', sent_at = $1, error_message = '', updated_at = NOW()
		 WHERE id = $2`, sentAt, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// MarkFailed transitions a scheduled email to failed and bumps the retry counter.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_emails SET status = 'failed', error_message = $1,
		 retry_count = retry_count + 1, updated_at = NOW() WHERE id = $2`, errMsg, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// RecordOpen appends one open event and updates the aggregate fields in a
// single transaction. The COALESCE keeps opened_at pinned to the first open
// under concurrent writers; there is no read-modify-write anywhere.
func (s *Store) RecordOpen(ctx context.Context, open *domain.EmailOpen) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE scheduled_emails SET is_opened = TRUE,
		 opened_at = COALESCE(opened_at, $1),
		 open_count = open_count + 1, updated_at = NOW()
		 WHERE tracking_id = $2`, open.OccurredAt, open.TrackingID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO email_opens (tracking_id, ip_address, user_agent, referer, is_unique, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		open.TrackingID, open.IPAddress, open.UserAgent, open.Referer, open.Unique, open.OccurredAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RecordClick appends one click event and bumps the aggregate counter.
func (s *Store) RecordClick(ctx context.Context, click *domain.EmailClick) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE scheduled_emails SET click_count = click_count + 1, updated_at = NOW()
		 WHERE tracking_id = $1`, click.TrackingID)
	if err != nil {
		return err
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO email_clicks (tracking_id, link_url, link_id, ip_address, user_agent, referer, is_unique, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		click.TrackingID, click.LinkURL, click.LinkID, click.IPAddress, click.UserAgent,
		click.Referer, click.Unique, click.OccurredAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListOpens returns the opens recorded for a tracking identifier, oldest first.
func (s *Store) ListOpens(ctx context.Context, trackingID string) ([]*domain.EmailOpen, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tracking_id, ip_address, user_agent, referer, is_unique, occurred_at
		 FROM email_opens WHERE tracking_id = $1 ORDER BY occurred_at, id`, trackingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opens []*domain.EmailOpen
	for rows.Next() {
		o := &domain.EmailOpen{}
		if err := rows.Scan(&o.ID, &o.TrackingID, &o.IPAddress, &o.UserAgent, &o.Referer,
			&o.Unique, &o.OccurredAt); err != nil {
			return nil, err
		}
		opens = append(opens, o)
	}
	return opens, rows.Err()
}

// ListClicks returns the clicks recorded for a tracking identifier, oldest first.
func (s *Store) ListClicks(ctx context.Context, trackingID string) ([]*domain.EmailClick, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tracking_id, link_url, link_id, ip_address, user_agent, referer, is_unique, occurred_at
		 FROM email_clicks WHERE tracking_id = $1 ORDER BY occurred_at, id`, trackingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []*domain.EmailClick
	for rows.Next() {
		c := &domain.EmailClick{}
		if err := rows.Scan(&c.ID, &c.TrackingID, &c.LinkURL, &c.LinkID, &c.IPAddress,
			&c.UserAgent, &c.Referer, &c.Unique, &c.OccurredAt); err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

// TrackingSummary aggregates engagement across all tracked emails.
type TrackingSummary struct {
	TotalSent    int     `json:"total_sent"`
	TotalOpened  int     `json:"total_opened"`
	TotalOpens   int     `json:"total_opens"`
	TotalClicks  int     `json:"total_clicks"`
	OpenRate     float64 `json:"open_rate"`
	TotalPending int     `json:"total_pending"`
	TotalFailed  int     `json:"total_failed"`
}

// GetTrackingSummary computes dashboard-level engagement statistics.
func (s *Store) GetTrackingSummary(ctx context.Context) (*TrackingSummary, error) {
	sum := &TrackingSummary{}
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*) FILTER (WHERE status = 'sent'),
		COUNT(*) FILTER (WHERE status = 'sent' AND is_opened),
		COALESCE(SUM(open_count), 0),
		COALESCE(SUM(click_count), 0),
		COUNT(*) FILTER (WHERE status = 'pending'),
		COUNT(*) FILTER (WHERE status = 'failed')
		FROM scheduled_emails`).Scan(
		&sum.TotalSent, &sum.TotalOpened, &sum.TotalOpens, &sum.TotalClicks,
		&sum.TotalPending, &sum.TotalFailed)
	if err != nil {
		return nil, err
	}
	if sum.TotalSent > 0 {
		sum.OpenRate = float64(sum.TotalOpened) / float64(sum.TotalSent) * 100
	}
	return sum, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScheduledEmail(row rowScanner) (*domain.ScheduledEmail, error) {
	e := &domain.ScheduledEmail{}
	var trackingID sql.NullString
	var sentAt, openedAt sql.NullTime
	err := row.Scan(&e.ID, &e.AdvisoryID, pq.Array(&e.To), pq.Array(&e.Cc), pq.Array(&e.Bcc),
		&e.Subject, &e.CustomMessage, &e.ScheduledAt, &e.Status, &e.CreatedBy, &sentAt,
		&e.ErrorMessage, &e.RetryCount, &trackingID, &e.IsOpened, &openedAt,
		&e.OpenCount, &e.ClickCount, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.TrackingID = trackingID.String
	if sentAt.Valid {
		e.SentAt = &sentAt.Time
	}
	if openedAt.Valid {
		e.OpenedAt = &openedAt.Time
	}
	return e, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

