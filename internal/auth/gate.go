package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"venueadmin/internal/metrics"
)

const (
	// SessionCookie carries the signed operator session.
	SessionCookie = "admin_session"
	// ImportSecretHeader carries the shared secret used by the import client.
	ImportSecretHeader = "X-Admin-Import-Secret"
	// ImportEmail identifies requests authorized by the import secret.
	ImportEmail = "import@system"
)

var (
	// ErrUnauthenticated means no usable session was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is known but not allowed.
	ErrForbidden = errors.New("forbidden")
)

// Policy is the access policy loaded from configuration at startup.
type Policy struct {
	AllowedEmails []string
	ImportSecret  string
}

// Gate decides whether a request may act on venue data.
type Gate struct {
	codec        *SessionCodec
	allowed      map[string]struct{}
	importSecret string
}

// NewGate builds a Gate from policy. Allow-list entries are trimmed and
// lower-cased; empty entries are dropped.
func NewGate(codec *SessionCodec, policy Policy) *Gate {
	allowed := make(map[string]struct{}, len(policy.AllowedEmails))
	for _, email := range policy.AllowedEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}
	return &Gate{codec: codec, allowed: allowed, importSecret: policy.ImportSecret}
}

// Allowed reports whether email is on the operator allow-list.
func (g *Gate) Allowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, ok := g.allowed[email]
	return ok
}

// Authorize returns the identity a request acts as. A presented import secret
// is decided on its own and never falls back to the session cookie.
func (g *Gate) Authorize(r *http.Request) (Identity, error) {
	if secret := r.Header.Get(ImportSecretHeader); secret != "" && g.importSecret != "" {
		if subtle.ConstantTimeCompare([]byte(secret), []byte(g.importSecret)) == 1 {
			metrics.RecordAuthDecision("import_secret")
			return Identity{Email: ImportEmail}, nil
		}
		metrics.RecordAuthDecision("forbidden")
		return Identity{}, ErrForbidden
	}

	token, ok := SessionToken(r)
	if !ok {
		metrics.RecordAuthDecision("unauthenticated")
		return Identity{}, ErrUnauthenticated
	}
	id, err := g.codec.Verify(token)
	if err != nil {
		metrics.RecordAuthDecision("unauthenticated")
		return Identity{}, ErrUnauthenticated
	}
	if !g.Allowed(id.Email) {
		metrics.RecordAuthDecision("forbidden")
		return Identity{}, ErrForbidden
	}

	metrics.RecordAuthDecision("session")
	return id, nil
}

// SessionToken extracts the URL-decoded admin_session cookie value.
func SessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	value, err := url.PathUnescape(cookie.Value)
	if err != nil {
		value = cookie.Value
	}
	return value, value != ""
}
