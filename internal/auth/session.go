// Package auth verifies operator identity for the admin API. It issues and
// verifies session tokens, exchanges Google ID tokens for sessions and decides
// whether a request may touch venue data.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long an operator session stays valid.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for any session token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Identity is the operator a request acts as.
type Identity struct {
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// sessionClaims is the signed payload of the admin_session cookie.
type sessionClaims struct {
	Email   string  `json:"email"`
	Name    *string `json:"name"`
	Picture *string `json:"picture"`
	jwt.RegisteredClaims
}

// SessionCodec signs and verifies HS256 session tokens.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec returns a codec for secret. An empty secret is a
// configuration error.
func NewSessionCodec(secret string) (*SessionCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	return &SessionCodec{secret: []byte(secret), ttl: SessionTTL, now: time.Now}, nil
}

// Issue signs a session for id that expires SessionTTL from now.
func (c *SessionCodec) Issue(id Identity) (string, error) {
	now := c.now()
	claims := sessionClaims{
		Email:   strings.ToLower(id.Email),
		Name:    optional(id.Name),
		Picture: optional(id.Picture),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Verify checks the signature and expiry of token. Every failure is reported
// as ErrInvalidToken.
func (c *SessionCodec) Verify(token string) (Identity, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{Email: strings.ToLower(claims.Email)}
	if claims.Name != nil {
		id.Name = *claims.Name
	}
	if claims.Picture != nil {
		id.Picture = *claims.Picture
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	id.ExpiresAt = claims.ExpiresAt.Time
	return id, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
