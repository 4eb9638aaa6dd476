package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/domain"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"clients": clients, "count": len(clients)})
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	client, err := s.store.GetClient(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var client domain.Client
	if err := decodeJSON(r, &client); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := client.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}
	client.Active = true
	if err := s.store.CreateClient(r.Context(), &client); err != nil {
		respondDomainError(w, err)
		return
	}
	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionClientCreated, "client", client.ID.String()))
	respondJSON(w, http.StatusCreated, client)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var client domain.Client
	if err := decodeJSON(r, &client); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	client.ID = id
	if err := client.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.store.UpdateClient(r.Context(), &client); err != nil {
		respondDomainError(w, err)
		return
	}
	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionClientUpdated, "client", id.String()))
	respondJSON(w, http.StatusOK, client)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	if err := s.store.DeleteClient(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	s.audit.Record(r.Context(), s.auditEntry(r, domain.ActionClientDeleted, "client", id.String()))
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
