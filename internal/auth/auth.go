// Package auth resolves the caller identity from bearer JWTs.
package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/xenking/order-factory/internal/domain/order"
	"github.com/xenking/order-factory/pkg/httpmiddleware"
)

// ErrInvalidToken is returned for malformed, expired or badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims issued to customers.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier returns a Verifier for the given secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify parses the token and returns the identity it carries.
func (v *Verifier) Verify(token string) (order.Identity, error) {
	var claims Claims
	t, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !t.Valid {
		return order.Identity{}, errors.Wrap(ErrInvalidToken, "parse")
	}
	if claims.UserID <= 0 {
		return order.Identity{}, errors.Wrap(ErrInvalidToken, "missing user_id")
	}
	return order.Identity{UserID: claims.UserID}, nil
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id order.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by Middleware, if any.
func FromContext(ctx context.Context) (order.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(order.Identity)
	return id, ok
}

// ContextProvider implements order.IdentityProvider on top of the request
// context.
type ContextProvider struct{}

var _ order.IdentityProvider = ContextProvider{}

func (ContextProvider) Current(ctx context.Context) (order.Identity, bool) {
	return FromContext(ctx)
}

// Middleware attaches the identity of a valid bearer token to the request
// context. Requests without an Authorization header pass through anonymously;
// an invalid token is rejected with 401.
func Middleware(v *Verifier) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}
			id, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				zctx.From(r.Context()).Debug("Rejected bearer token", zap.Error(err))
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = zctx.With(ctx, zap.Int64("user_id", id.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitKey buckets authenticated callers by user id and anonymous ones by
// client address. Must run after Middleware.
func RateLimitKey(r *http.Request) string {
	if id, ok := FromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(id.UserID, 10)
	}
	return "ip:" + httpmiddleware.ClientIP(r)
}
