package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

type jwksServer struct {
	*httptest.Server
	key     *rsa.PrivateKey
	fetches atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	s := &jwksServer{key: key}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "k1",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) sign(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func googleClaimsFor(aud, iss string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":     iss,
		"aud":     aud,
		"sub":     "1234",
		"email":   "Ops@Example.com",
		"name":    "Ops",
		"picture": "https://img",
		"exp":     exp.Unix(),
		"iat":     time.Now().Unix(),
	}
}

func TestGoogleVerifierAcceptsValidToken(t *testing.T) {
	srv := newJWKSServer(t)
	v := NewGoogleVerifier("client-1", NewJWKSCache(srv.URL, srv.Client(), time.Minute))

	for _, iss := range []string{"accounts.google.com", "https://accounts.google.com"} {
		token := srv.sign(t, "k1", googleClaimsFor("client-1", iss, time.Now().Add(time.Hour)))
		profile, err := v.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("Verify(%s): %v", iss, err)
		}
		if profile.Email != "ops@example.com" || profile.Name != "Ops" || profile.Picture != "https://img" {
			t.Fatalf("unexpected profile: %+v", profile)
		}
	}
	if got := srv.fetches.Load(); got != 1 {
		t.Fatalf("JWKS fetched %d times, want 1", got)
	}
}

func TestGoogleVerifierRejects(t *testing.T) {
	srv := newJWKSServer(t)
	v := NewGoogleVerifier("client-1", NewJWKSCache(srv.URL, srv.Client(), time.Minute))
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong audience", srv.sign(t, "k1", googleClaimsFor("client-2", "accounts.google.com", later))},
		{"wrong issuer", srv.sign(t, "k1", googleClaimsFor("client-1", "evil.example.com", later))},
		{"expired", srv.sign(t, "k1", googleClaimsFor("client-1", "accounts.google.com", time.Now().Add(-time.Hour)))},
		{"unknown kid", srv.sign(t, "k9", googleClaimsFor("client-1", "accounts.google.com", later))},
		{"empty", ""},
		{"garbage", "a.b.c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tt.token); !errors.Is(err, ErrInvalidGoogleToken) {
				t.Fatalf("expected ErrInvalidGoogleToken, got %v", err)
			}
		})
	}
}

func TestGoogleVerifierRequiresClientID(t *testing.T) {
	srv := newJWKSServer(t)
	v := NewGoogleVerifier("", NewJWKSCache(srv.URL, srv.Client(), time.Minute))
	token := srv.sign(t, "k1", googleClaimsFor("", "accounts.google.com", time.Now().Add(time.Hour)))
	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrInvalidGoogleToken) {
		t.Fatalf("expected ErrInvalidGoogleToken, got %v", err)
	}
}

func TestJWKSCacheServesStaleKeyWhenRefreshFails(t *testing.T) {
	srv := newJWKSServer(t)
	cache := NewJWKSCache(srv.URL, srv.Client(), time.Nanosecond)
	first, err := cache.Key(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}

	srv.Close()
	time.Sleep(time.Millisecond)
	second, err := cache.Key(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Key after outage: %v", err)
	}
	if first.N.Cmp(second.N) != 0 {
		t.Fatalf("expected the cached key")
	}
}
