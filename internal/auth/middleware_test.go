package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-booking-finance/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signHS256(secret string, claims jwt.RegisteredClaims, schoolID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, hmacClaims{SchoolID: schoolID, RegisteredClaims: claims})
	return token.SignedString([]byte(secret))
}

func protected(t *testing.T) http.Handler {
	t.Helper()
	mw := Middleware(NewHMACVerifier(testSecret), logger.NewDiscardLogger())
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := ClaimsFrom(r.Context())
		require.NotNil(t, c)
		w.Header().Set("X-User", UserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddleware_ValidToken(t *testing.T) {
	token, err := signHS256(testSecret, jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, 3)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/finance/bookings/1/reality", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	protected(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Header().Get("X-User"))
}

func TestMiddleware_Rejects(t *testing.T) {
	expired, err := signHS256(testSecret, jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}, 0)
	require.NoError(t, err)
	wrongKey, err := signHS256("other-secret", jwt.RegisteredClaims{Subject: "admin-1"}, 0)
	require.NoError(t, err)
	noSubject, err := signHS256(testSecret, jwt.RegisteredClaims{}, 0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"no subject", "Bearer " + noSubject},
		{"garbage", "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected(t).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestUserID_OutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", UserID(req.Context()))
	assert.Equal(t, "u1", UserID(WithClaims(req.Context(), &Claims{Subject: "u1"})))
}
