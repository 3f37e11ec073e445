// Package auth issues and verifies the identity the game trusts.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A player registers or logs in (password or GitHub OAuth)
//  2. The server signs a JWT carrying the user ID ("sub") and role ("role")
//  3. The client sends it back as "Authorization: Bearer <jwt>" or in the
//     HttpOnly "token" cookie set by the GitHub callback
//  4. RequireAuth validates it and puts the identity in the request context
//  5. RequireRole gates admin routes on the role claim
//
// The role is read from the verified token only. A request body can never
// make a caller an admin.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/idle-clicker/internal/model"
)

const issuer = "idle-clicker"

// DefaultTokenTTL applies when NewTokenService gets a non-positive ttl.
const DefaultTokenTTL = 24 * time.Hour

// TokenService handles JWT creation and validation with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService rejects secrets shorter than 16 characters.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid; handlers reuse it for cookie MaxAge.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID string
	Role   model.Role
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Generate signs an HS256 token for user valid for the service TTL.
func (s *TokenService) Generate(user *model.User) (string, error) {
	return s.GenerateWithDuration(user.ID, user.Role, s.ttl)
}

// GenerateWithDuration signs a token with an explicit lifetime. Tests use a
// negative duration to produce expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, algorithm, issuer and expiry, then returns
// the identity. A token without a subject or with an unknown role is invalid.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm an attacker could send alg "none".
// jwt.WithValidMethods rejects anything but HS256.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
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

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	role := model.Role(c.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return &Identity{UserID: c.Subject, Role: role}, nil
}
