package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/audit"
	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/mailer"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
	"github.com/inteldesk/inteldesk/internal/tracking"
)

var (
	// ErrAlreadySent is returned when a send is requested for an email
	// that already went out and force was not set.
	ErrAlreadySent = errors.New("email already sent")

	// ErrCancelled is returned when a send is requested for a cancelled
	// email. Cancelled emails are never sendable, even with force.
	ErrCancelled = errors.New("email is cancelled")
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	tracking.IDStore
	GetScheduledEmail(ctx context.Context, id uuid.UUID) (*domain.ScheduledEmail, error)
	GetAdvisory(ctx context.Context, id uuid.UUID) (*domain.Advisory, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Archiver stores a copy of the final sent body. Optional.
type Archiver interface {
	Archive(ctx context.Context, email *domain.ScheduledEmail, body string) error
}

// Orchestrator drives a scheduled email through its full delivery
// sequence: load, render, ensure tracking identity, inject tracking,
// send, record outcome.
type Orchestrator struct {
	store     Store
	renderer  *Renderer
	issuer    *tracking.Issuer
	transport mailer.Transport
	audit     *audit.Logger
	archiver  Archiver

	from        string
	fromName    string
	trackingURL string
}

// NewOrchestrator wires the delivery pipeline. archiver may be nil.
func NewOrchestrator(store Store, renderer *Renderer, transport mailer.Transport, auditLog *audit.Logger, archiver Archiver, from, fromName, trackingURL string) *Orchestrator {
	return &Orchestrator{
		store:       store,
		renderer:    renderer,
		issuer:      tracking.NewIssuer(store),
		transport:   transport,
		audit:       auditLog,
		archiver:    archiver,
		from:        from,
		fromName:    fromName,
		trackingURL: trackingURL,
	}
}

// SendNow sends one scheduled email immediately, regardless of its
// scheduled time. Only pending and failed emails are sendable; a sent
// email requires force, and a cancelled one is refused outright.
//
// The status checks are advisory, not locking: two racing SendNow calls
// for the same pending email can both deliver. The scheduler avoids this
// with a process-wide lock; operator-triggered resends accept it.
func (o *Orchestrator) SendNow(ctx context.Context, id uuid.UUID, actor *domain.AuditLog, force bool) (*domain.ScheduledEmail, error) {
	email, err := o.store.GetScheduledEmail(ctx, id)
	if err != nil {
		return nil, err
	}

	switch email.Status {
	case domain.EmailCancelled:
		return nil, ErrCancelled
	case domain.EmailSent:
		if !force {
			return nil, ErrAlreadySent
		}
	}

	advisory, err := o.store.GetAdvisory(ctx, email.AdvisoryID)
	if err != nil {
		return nil, fmt.Errorf("load advisory: %w", err)
	}

	body, err := o.renderer.Render(advisory, email)
	if err != nil {
		o.recordFailure(ctx, email, err)
		return nil, err
	}

	trackingID, err := o.issuer.Ensure(ctx, email)
	if err != nil {
		o.recordFailure(ctx, email, err)
		return nil, err
	}
	body = tracking.InjectTracking(body, trackingID, o.trackingURL)

	msg := &mailer.Message{
		From:     o.from,
		FromName: o.fromName,
		To:       email.To,
		Cc:       email.Cc,
		Bcc:      email.Bcc,
		Subject:  email.Subject,
		HTML:     body,
	}
	if err := o.transport.Send(ctx, msg); err != nil {
		o.recordFailure(ctx, email, err)
		return nil, fmt.Errorf("send email: %w", err)
	}

	sentAt := time.Now().UTC()
	if err := o.store.MarkSent(ctx, email.ID, sentAt); err != nil {
		// The email went out; a stale status row is recoverable, a
		// resend is not. Log and report success.
		logger.Error("mark sent failed", "email_id", email.ID, "error", err)
	}
	email.Status = domain.EmailSent
	email.SentAt = &sentAt
	email.TrackingID = trackingID

	if o.archiver != nil {
		if err := o.archiver.Archive(ctx, email, body); err != nil {
			logger.Warn("archive sent body failed", "email_id", email.ID, "error", err)
		}
	}

	if actor != nil {
		entry := *actor
		entry.Action = domain.ActionEmailSent
		entry.Resource = "scheduled_email"
		entry.ResourceID = email.ID.String()
		entry.Details = fmt.Sprintf("advisory %s to %d recipients", email.AdvisoryID, len(email.To))
		o.audit.Record(ctx, entry)
	}

	logger.Info("email delivered",
		"email_id", email.ID,
		"advisory_id", email.AdvisoryID,
		"recipients", len(email.To))
	return email, nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, email *domain.ScheduledEmail, cause error) {
	if err := o.store.MarkFailed(ctx, email.ID, cause.Error()); err != nil {
		logger.Error("mark failed failed", "email_id", email.ID, "error", err)
	}
	email.Status = domain.EmailFailed
	email.ErrorMessage = cause.Error()
	email.RetryCount++
}
