package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/domain"
)

type createEmailRequest struct {
	AdvisoryID    uuid.UUID `json:"advisory_id"`
	To            []string  `json:"to"`
	Cc            []string  `json:"cc"`
	Bcc           []string  `json:"bcc"`
	Subject       string    `json:"subject"`
	CustomMessage string    `json:"custom_message"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

func (s *Server) handleCreateScheduledEmail(w http.ResponseWriter, r *http.Request) {
	var req createEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := &domain.ScheduledEmail{
		AdvisoryID:    req.AdvisoryID,
		To:            req.To,
		Cc:            req.Cc,
		Bcc:           req.Bcc,
		Subject:       req.Subject,
		CustomMessage: req.CustomMessage,
		ScheduledAt:   req.ScheduledAt,
		Status:        domain.EmailPending,
		CreatedBy:     principalFrom(r.Context()).UserID,
	}
	if email.ScheduledAt.IsZero() {
		email.ScheduledAt = time.Now().UTC()
	}
	if err := email.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	// The advisory must exist before a send can be scheduled against it.
	if _, err := s.store.GetAdvisory(r.Context(), email.AdvisoryID); err != nil {
		respondDomainError(w, err)
		return
	}

	if err := s.store.CreateScheduledEmail(r.Context(), email); err != nil {
		respondDomainError(w, err)
		return
	}

	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionEmailScheduled, "scheduled_email", email.ID.String()))
	respondJSON(w, http.StatusCreated, email)
}

func (s *Server) handleListScheduledEmails(w http.ResponseWriter, r *http.Request) {
	status := domain.EmailStatus(r.URL.Query().Get("status"))
	limit, offset := pagination(r)

	emails, err := s.store.ListScheduledEmails(r.Context(), status, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"emails": emails, "count": len(emails)})
}

func (s *Server) handleGetScheduledEmail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}
	email, err := s.store.GetScheduledEmail(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, email)
}

type sendNowRequest struct {
	Force bool `json:"force"`
}

// handleSendNow sends a scheduled email immediately. Force resends an
// email that already went out.
func (s *Server) handleSendNow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	var req sendNowRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	actor := s.auditEntry(r, domain.ActionEmailSent, "scheduled_email", id.String())
	email, err := s.orchestrator.SendNow(r.Context(), id, &actor, req.Force)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, email)
}

func (s *Server) handleCancelScheduledEmail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}
	if err := s.store.CancelScheduledEmail(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionEmailCancelled, "scheduled_email", id.String()))
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleEmailEvents returns the raw open and click history for one email.
func (s *Server) handleEmailEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}
	email, err := s.store.GetScheduledEmail(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if email.TrackingID == "" {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"opens":  []*domain.EmailOpen{},
			"clicks": []*domain.EmailClick{},
		})
		return
	}

	opens, err := s.store.ListOpens(r.Context(), email.TrackingID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	clicks, err := s.store.ListClicks(r.Context(), email.TrackingID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"opens": opens, "clicks": clicks})
}

func (s *Server) handleTrackingSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.GetTrackingSummary(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// auditEntry builds an entry pre-filled with the requesting principal.
func (s *Server) auditEntry(r *http.Request, action domain.AuditAction, resource, resourceID string) domain.AuditLog {
	entry := domain.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if p := principalFrom(r.Context()); p != nil {
		entry.UserID = p.UserID
		entry.UserRole = string(p.Role)
	}
	return entry
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
