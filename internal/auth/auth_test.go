package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-factory/internal/domain/order"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(userID int64) Claims {
	return Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testSecret)

	expired := validClaims(7)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name    string
		token   string
		want    order.Identity
		wantErr bool
	}{
		{name: "valid", token: sign(t, jwt.SigningMethodHS256, testSecret, validClaims(7)), want: order.Identity{UserID: 7}},
		{name: "wrong secret", token: sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims(7)), wantErr: true},
		{name: "wrong algorithm", token: sign(t, jwt.SigningMethodHS512, testSecret, validClaims(7)), wantErr: true},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, testSecret, expired), wantErr: true},
		{name: "missing user", token: sign(t, jwt.SigningMethodHS256, testSecret, validClaims(0)), wantErr: true},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(tt.token)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret)

	var (
		seen   order.Identity
		hasID  bool
		called bool
	)
	h := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, hasID = ContextProvider{}.Current(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantID     bool
	}{
		{name: "anonymous", wantStatus: http.StatusNoContent},
		{name: "bearer", header: "Bearer " + sign(t, jwt.SigningMethodHS256, testSecret, validClaims(9)), wantStatus: http.StatusNoContent, wantID: true},
		{name: "invalid bearer", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "other scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, hasID, seen = false, false, order.Identity{}

			req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusNoContent, called)
			assert.Equal(t, tt.wantID, hasID)
			if tt.wantID {
				assert.Equal(t, int64(9), seen.UserID)
			}
		})
	}
}

func TestRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = "192.0.2.10:443"
	assert.Equal(t, "ip:192.0.2.10", RateLimitKey(req))

	req = req.WithContext(WithIdentity(req.Context(), order.Identity{UserID: 42}))
	assert.Equal(t, "user:42", RateLimitKey(req))
}
