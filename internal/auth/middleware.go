package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/feedclient/internal/model"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the principal.
type contextKey string

const principalKey contextKey = "principal"

// Principal is the caller as resolved by the stub API.
type Principal struct {
	UserID   int64
	Username string
}

// ErrNoCredentials means the request carried no identity at all.
var ErrNoCredentials = errors.New("auth: no credentials")

// Extractor resolves the caller of a request.
type Extractor func(r *http.Request) (Principal, error)

// BearerExtractor reads "Authorization: Bearer <token>" and validates the token.
func BearerExtractor(tokens *TokenService) Extractor {
	return func(r *http.Request) (Principal, error) {
		h := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return Principal{}, ErrNoCredentials
		}
		c, err := tokens.Validate(token)
		if err != nil {
			return Principal{}, err
		}
		id := c.UserID
		if id == 0 {
			id, _ = strconv.ParseInt(c.Subject, 10, 64)
		}
		return Principal{UserID: id, Username: c.Username}, nil
	}
}

// HeaderExtractor reads the X-User-ID / x-username pair of the username
// variant. The username is percent-decoded; the id must be a positive integer.
func HeaderExtractor() Extractor {
	return func(r *http.Request) (Principal, error) {
		rawID := r.Header.Get(HeaderUserID)
		rawName := r.Header.Get(HeaderUsername)
		if rawID == "" && rawName == "" {
			return Principal{}, ErrNoCredentials
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			return Principal{}, errors.New("auth: invalid X-User-ID header")
		}
		return Principal{UserID: id, Username: model.DecodeUsername(rawName)}, nil
	}
}

// RequireAuth rejects requests whose caller cannot be resolved with
// 401 Unauthorized and stops the chain.
func RequireAuth(extract Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := extract(r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth resolves the caller when it can and lets anonymous requests
// through. Read endpoints use it so is_liked can be computed for a known
// caller.
func OptionalAuth(extract Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := extract(r); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the resolved caller, or false for an
// anonymous request.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != 0
}
