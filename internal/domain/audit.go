package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates the auditable operations in the dashboard.
type AuditAction string

const (
	ActionUserLogin        AuditAction = "user_login"
	ActionAdvisoryCreated  AuditAction = "advisory_created"
	ActionAdvisoryUpdated  AuditAction = "advisory_updated"
	ActionAdvisoryDeleted  AuditAction = "advisory_deleted"
	ActionClientCreated    AuditAction = "client_created"
	ActionClientUpdated    AuditAction = "client_updated"
	ActionClientDeleted    AuditAction = "client_deleted"
	ActionEmailScheduled   AuditAction = "email_scheduled"
	ActionEmailSent        AuditAction = "email_sent"
	ActionEmailCancelled   AuditAction = "email_cancelled"
	ActionSystemAccessed   AuditAction = "system_accessed"
)

// AuditLog is one recorded administrative activity. Audit writes are
// best-effort: a failed write never fails the operation being audited.
type AuditLog struct {
	ID         uuid.UUID   `json:"id"`
	UserID     string      `json:"user_id"`
	UserRole   string      `json:"user_role"`
	Action     AuditAction `json:"action"`
	Resource   string      `json:"resource"`
	ResourceID string      `json:"resource_id,omitempty"`
	Details    string      `json:"details,omitempty"`
	IPAddress  string      `json:"ip_address,omitempty"`
	UserAgent  string      `json:"user_agent,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
