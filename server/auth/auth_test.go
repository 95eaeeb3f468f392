package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndAuthenticate(t *testing.T) {
	a := NewAuthenticator("secret")
	token, err := a.GenerateToken(42, time.Hour)
	require.NoError(t, err)

	userID, err := a.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int32(42), userID)
}

func TestAuthenticateRejects(t *testing.T) {
	a := NewAuthenticator("secret")
	valid, err := a.GenerateToken(42, time.Hour)
	require.NoError(t, err)

	expired, err := a.GenerateToken(42, -time.Minute)
	require.NoError(t, err)

	otherSecret, err := NewAuthenticator("other").GenerateToken(42, time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "42"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"missing header", "", ErrMissingToken},
		{"wrong scheme", "Basic " + valid, ErrMissingToken},
		{"empty token", "Bearer ", ErrMissingToken},
		{"garbage", "Bearer not-a-jwt", ErrInvalidToken},
		{"expired", "Bearer " + expired, ErrInvalidToken},
		{"other secret", "Bearer " + otherSecret, ErrInvalidToken},
		{"non numeric subject", "Bearer " + noSubject, ErrInvalidToken},
		{"no expiry", "Bearer " + noExpiry, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator("secret")
	token, err := a.GenerateToken(7, time.Hour)
	require.NoError(t, err)

	e := echo.New()
	onError := func(c echo.Context, err error) error {
		return c.NoContent(http.StatusUnauthorized)
	}
	handler := Middleware(a, onError)(func(c echo.Context) error {
		userID, ok := UserIDFromContext(c.Request().Context())
		require.True(t, ok)
		assert.Equal(t, int32(7), userID)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	userID, ok := UserIDFromContext(SetUserID(context.Background(), 3))
	assert.True(t, ok)
	assert.Equal(t, int32(3), userID)
}
