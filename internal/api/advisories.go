package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/domain"
)

func (s *Server) handleListAdvisories(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	advisories, err := s.store.ListAdvisories(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"advisories": advisories, "count": len(advisories)})
}

func (s *Server) handleSearchAdvisories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit, _ := pagination(r)
	advisories, err := s.searchIndex.Search(r.Context(), q, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"advisories": advisories, "count": len(advisories)})
}

func (s *Server) handleGetAdvisory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid advisory id")
		return
	}
	advisory, err := s.store.GetAdvisory(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, advisory)
}

func (s *Server) handleCreateAdvisory(w http.ResponseWriter, r *http.Request) {
	var advisory domain.Advisory
	if err := decodeJSON(r, &advisory); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if advisory.Author == "" {
		if p := principalFrom(r.Context()); p != nil {
			advisory.Author = p.Username
		}
	}
	if err := advisory.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.store.CreateAdvisory(r.Context(), &advisory); err != nil {
		respondDomainError(w, err)
		return
	}
	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionAdvisoryCreated, "advisory", advisory.ID.String()))
	respondJSON(w, http.StatusCreated, advisory)
}

func (s *Server) handleUpdateAdvisory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid advisory id")
		return
	}
	var advisory domain.Advisory
	if err := decodeJSON(r, &advisory); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	advisory.ID = id
	if err := advisory.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.store.UpdateAdvisory(r.Context(), &advisory); err != nil {
		respondDomainError(w, err)
		return
	}
	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionAdvisoryUpdated, "advisory", id.String()))
	respondJSON(w, http.StatusOK, advisory)
}

func (s *Server) handleDeleteAdvisory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid advisory id")
		return
	}
	if err := s.store.DeleteAdvisory(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionAdvisoryDeleted, "advisory", id.String()))
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
