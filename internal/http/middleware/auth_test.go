package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmiguel/saldo/internal/http/middleware"
)

const secret = "test-secret"

func signToken(t *testing.T, subject, key string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)

	return signed
}

func authed(t *testing.T, header string) (*httptest.ResponseRecorder, *uuid.UUID) {
	t.Helper()

	var seen *uuid.UUID

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.UserID(r.Context())
		seen = &id
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}

	rec := httptest.NewRecorder()
	middleware.Authenticate(secret)(next).ServeHTTP(rec, req)

	return rec, seen
}

func TestAuthenticate_ValidToken(t *testing.T) {
	userID := uuid.New()

	rec, seen := authed(t, "Bearer "+signToken(t, userID.String(), secret))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, userID, *seen)
}

func TestAuthenticate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong key", "Bearer " + signToken(t, uuid.NewString(), "other-secret")},
		{"subject not a uuid", "Bearer " + signToken(t, "alice", secret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, seen := authed(t, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, seen)
		})
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})

	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	rec, seen := authed(t, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}
