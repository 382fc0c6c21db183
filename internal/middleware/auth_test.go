package middleware

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

func signToken(t *testing.T, subject, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protected(t *testing.T) (http.Handler, *string) {
	var gotUser string
	h := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &gotUser
}

func TestAuthAcceptsValidBearerToken(t *testing.T) {
	h, gotUser := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/provider", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-42", testSecret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", *gotUser)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	h, _ := protected(t)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"wrong secret", "Bearer " + signToken(t, "user-42", "other-secret")},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/provider", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	h, _ := protected(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/provider", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
