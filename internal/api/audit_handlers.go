package api

import (
	"net/http"

	"github.com/inteldesk/inteldesk/internal/domain"
)

func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	action := domain.AuditAction(r.URL.Query().Get("action"))
	limit, offset := pagination(r)

	logs, err := s.store.ListAuditLogs(r.Context(), action, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"logs": logs, "count": len(logs)})
}
