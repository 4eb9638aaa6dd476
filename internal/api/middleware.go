package api

import (
	"context"
	"net/http"

	"github.com/inteldesk/inteldesk/internal/auth"
)

type contextKey string

const principalKey contextKey = "principal"

// principalFrom returns the authenticated principal, or nil on
// unauthenticated routes.
func principalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}

// requireAuth verifies the request token and stores the principal in the
// request context. Missing or invalid tokens get 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r, s.tokenCookie)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		principal, err := s.verifier.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCapability gates a route group on one capability. Runs after
// requireAuth; an authenticated principal without the capability gets 403.
func requireCapability(c auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := principalFrom(r.Context())
			if p == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !p.Can(c) {
				respondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
