package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, c claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret)
	token := signToken(t, testSecret, claims{
		UserID:   "u1",
		Username: "analyst",
		Email:    "analyst@example.com",
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	p, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, RoleAdmin, p.Role)
}

func TestJWTVerifier_Rejections(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	expired := signToken(t, testSecret, claims{
		UserID: "u1", Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, "other-secret", claims{UserID: "u1", Role: "admin"})
	badRole := signToken(t, testSecret, claims{UserID: "u1", Role: "superuser"})

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong key":    wrongKey,
		"unknown role": badRole,
		"garbage":      "not.a.token",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleUser))
	assert.False(t, RoleUser.AtLeast(RoleAdmin))
	assert.False(t, Role("bogus").AtLeast(RoleUser))
}

func TestPrincipal_Can(t *testing.T) {
	user := &Principal{Role: RoleUser}
	admin := &Principal{Role: RoleAdmin}
	super := &Principal{Role: RoleSuperAdmin}

	assert.True(t, user.Can(CapViewAdvisories))
	assert.False(t, user.Can(CapSendEmail))
	assert.False(t, user.Can(CapManageClients))

	assert.True(t, admin.Can(CapSendEmail))
	assert.True(t, admin.Can(CapViewAudit))
	assert.True(t, super.Can(CapSendEmail))

	assert.False(t, admin.Can(Capability("unknown")), "unknown capabilities are denied")
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r, "token"))

	r.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r, "token"))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r, "token"), "header wins over cookie")
}
