// Package audit records administrative activity. Writes are best-effort:
// failures are logged and swallowed so audit never breaks the audited
// operation.
package audit

import (
	"context"
	"time"

	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

// Sink persists audit entries.
type Sink interface {
	InsertAuditLog(ctx context.Context, l *domain.AuditLog) error
}

// Logger writes audit entries to a sink.
type Logger struct {
	sink Sink
}

func New(sink Sink) *Logger {
	return &Logger{sink: sink}
}

// Record writes one entry. It never returns an error; a nil Logger or nil
// sink is a no-op so callers can audit unconditionally.
func (a *Logger) Record(ctx context.Context, entry domain.AuditLog) {
	if a == nil || a.sink == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := a.sink.InsertAuditLog(ctx, &entry); err != nil {
		logger.Warn("audit write failed", "action", string(entry.Action), "error", err)
	}
}
