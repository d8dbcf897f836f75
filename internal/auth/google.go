package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidGoogleToken is returned when an ID token fails verification.
var ErrInvalidGoogleToken = errors.New("invalid google token")

var googleIssuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

// KeySource resolves a signing key by key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// GoogleProfile is the part of a Google ID token an operator session needs.
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}

type googleClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleVerifier checks Google Sign-In ID tokens issued for one client id.
type GoogleVerifier struct {
	clientID string
	keys     KeySource
	now      func() time.Time
}

// NewGoogleVerifier returns a verifier for tokens whose audience is clientID.
func NewGoogleVerifier(clientID string, keys KeySource) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, keys: keys, now: time.Now}
}

// Verify validates the RS256 signature, expiry, audience and issuer of
// idToken and returns the profile with the email lower-cased.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (GoogleProfile, error) {
	if v.clientID == "" {
		return GoogleProfile{}, fmt.Errorf("%w: GOOGLE_CLIENT_ID is not configured", ErrInvalidGoogleToken)
	}
	if idToken == "" {
		return GoogleProfile{}, ErrInvalidGoogleToken
	}

	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token missing kid header")
		}
		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, fmt.Errorf("get key for kid %s: %w", kid, err)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("%w: %s", ErrInvalidGoogleToken, err.Error())
	}
	if _, ok := googleIssuers[claims.Issuer]; !ok {
		return GoogleProfile{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidGoogleToken, claims.Issuer)
	}

	return GoogleProfile{
		Email:   strings.ToLower(strings.TrimSpace(claims.Email)),
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
