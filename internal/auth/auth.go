// Package auth verifies session tokens and answers capability questions for
// the rest of the system. Handlers never compare role strings directly; they
// ask the principal whether it can perform an action.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse privilege level carried by a session token.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// level orders roles: super_admin > admin > user.
func (r Role) level() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants the privileges of want.
func (r Role) AtLeast(want Role) bool {
	return r.level() >= want.level()
}

// Capability names a discrete privileged action.
type Capability string

const (
	CapViewAdvisories Capability = "view-advisories"
	CapEditAdvisories Capability = "edit-advisories"
	CapManageClients  Capability = "manage-clients"
	CapSendEmail      Capability = "send-email"
	CapViewAudit      Capability = "view-audit"
)

// capFloor maps each capability to the minimum role that holds it.
var capFloor = map[Capability]Role{
	CapViewAdvisories: RoleUser,
	CapEditAdvisories: RoleAdmin,
	CapManageClients:  RoleAdmin,
	CapSendEmail:      RoleAdmin,
	CapViewAudit:      RoleAdmin,
}

// Principal is the verified identity behind a request.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Can reports whether the principal holds the capability.
func (p *Principal) Can(c Capability) bool {
	floor, ok := capFloor[c]
	if !ok {
		return false
	}
	return p.Role.AtLeast(floor)
}

// ErrInvalidToken is returned for missing, malformed, or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Verifier turns an opaque token into a Principal. The dashboard's session
// machinery lives outside this system; this is the only surface consumed.
type Verifier interface {
	Verify(token string) (*Principal, error)
}

type claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256-signed session tokens.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, returning the embedded principal.
func (v *JWTVerifier) Verify(token string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	p := &Principal{
		UserID:   c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Role:     Role(c.Role),
	}
	if p.Role.level() == 0 {
		return nil, ErrInvalidToken
	}
	return p, nil
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
