package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EmailStatus is the lifecycle state of a scheduled email.
type EmailStatus string

const (
	EmailPending   EmailStatus = "pending"
	EmailSent      EmailStatus = "sent"
	EmailFailed    EmailStatus = "failed"
	EmailCancelled EmailStatus = "cancelled"
)

// ScheduledEmail is the persisted record of one intended advisory send: its
// addressing, lifecycle state, and engagement counters.
//
// TrackingID is minted once (64 hex chars, 256 bits of randomness) and never
// reassigned. Individual open/click events live in their own tables, keyed by
// TrackingID; IsOpened/OpenedAt reflect the first observed open only.
type ScheduledEmail struct {
	ID            uuid.UUID   `json:"id"`
	AdvisoryID    uuid.UUID   `json:"advisory_id"`
	To            []string    `json:"to"`
	Cc            []string    `json:"cc,omitempty"`
	Bcc           []string    `json:"bcc,omitempty"`
	Subject       string      `json:"subject"`
	CustomMessage string      `json:"custom_message,omitempty"`
	ScheduledAt   time.Time   `json:"scheduled_at"`
	Status        EmailStatus `json:"status"`
	CreatedBy     string      `json:"created_by"`
	SentAt        *time.Time  `json:"sent_at,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	RetryCount    int         `json:"retry_count"`

	TrackingID string     `json:"tracking_id,omitempty"`
	IsOpened   bool       `json:"is_opened"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	OpenCount  int        `json:"open_count"`
	ClickCount int        `json:"click_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required to schedule an email.
func (e *ScheduledEmail) Validate() error {
	if e.AdvisoryID == uuid.Nil {
		return ErrMissingField("advisory_id")
	}
	if len(e.To) == 0 {
		return ErrMissingField("to")
	}
	if e.Subject == "" {
		return ErrMissingField("subject")
	}
	for _, addr := range append(append(append([]string{}, e.To...), e.Cc...), e.Bcc...) {
		if !ValidEmailAddress(addr) {
			return ErrInvalidField("recipient " + addr)
		}
	}
	return nil
}

// EmailOpen is one observed pixel fetch. Opens are append-only: every hit is
// recorded, including repeats from the same recipient.
type EmailOpen struct {
	ID         int64     `json:"id"`
	TrackingID string    `json:"tracking_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	Unique     bool      `json:"unique"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EmailClick is one observed redirect-endpoint hit for a specific link.
type EmailClick struct {
	ID         int64     `json:"id"`
	TrackingID string    `json:"tracking_id"`
	LinkURL    string    `json:"link_url"`
	LinkID     string    `json:"link_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	Unique     bool      `json:"unique"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MissingFieldError reports a required field absent from a request.
type MissingFieldError string

func (e MissingFieldError) Error() string { return fmt.Sprintf("missing required field %q", string(e)) }

// InvalidFieldError reports a field with an unacceptable value.
type InvalidFieldError string

func (e InvalidFieldError) Error() string { return fmt.Sprintf("invalid field %q", string(e)) }

// ErrMissingField wraps a field name in a MissingFieldError.
func ErrMissingField(name string) error { return MissingFieldError(name) }

// ErrInvalidField wraps a field name in an InvalidFieldError.
func ErrInvalidField(name string) error { return InvalidFieldError(name) }
