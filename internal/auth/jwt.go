// Package auth carries identity across the wire in both directions.
//
// CLIENT SIDE (transport.go, claims.go):
// Every outgoing request passes through Transport, which reads the current
// identity and stamps it on the request, either as a bearer token or as the
// X-User-ID / x-username header pair. ClaimsFromToken reads the user id and
// name out of an access token without verifying it; the client has no key.
//
// SERVER SIDE (jwt.go, password.go, middleware.go):
// The stub API in internal/mockapi issues and checks tokens with
// TokenService, hashes passwords with PasswordService, and resolves the
// caller with RequireAuth / OptionalAuth.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"42","id":42,"username":"kim","kind":"access","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/feedclient/internal/model"
)

const (
	issuer = "feed-api"

	// Lifetimes match the feed backend: 30 minutes for access, a week for refresh.
	accessTTL  = 30 * time.Minute
	refreshTTL = 7 * 24 * time.Hour

	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims is the JWT payload shared by issuer and reader.
//
// "sub" holds the user id as a decimal string. Some deployments put the
// username in "sub" instead and the id in "id"; ClaimsFromToken accepts both.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// TokenService signs and verifies the stub API's tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data outside of tests.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Issue returns a fresh access/refresh pair for the user, in the shape
// POST /auth/login responds with.
func (s *TokenService) Issue(userID int64, username string) (model.TokenPair, error) {
	access, err := s.GenerateWithDuration(userID, username, kindAccess, accessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := s.GenerateWithDuration(userID, username, kindRefresh, refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// GenerateWithDuration signs a single token of the given kind.
// Tests use it directly to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID int64, username, kind string, d time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		UserID:   userID,
		Username: username,
		Kind:     kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies an access token and returns its claims.
//
// Checked: HS256 signature, expiry, issuer, and that the token is an access
// token. A refresh token presented as a bearer credential is rejected.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Kind != kindAccess {
		return nil, fmt.Errorf("auth: not an access token")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	return c, nil
}
