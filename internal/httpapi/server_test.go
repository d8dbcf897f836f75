package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"venueadmin/internal/app/venues"
	"venueadmin/internal/auth"
	"venueadmin/internal/store"
	"venueadmin/internal/uploads"
	"venueadmin/shared/go/models"
)

const testImportSecret = "import-key"

type stubVenueService struct {
	createVenue    models.Venue
	createInserted bool
	updateVenue    models.Venue
	listVenues     []models.Venue
	err            error

	calls      int
	lastFields venues.Fields
	lastID     string
	lastFilter models.VenueFilter
}

func (s *stubVenueService) Create(_ context.Context, f venues.Fields) (models.Venue, bool, error) {
	s.calls++
	s.lastFields = f
	return s.createVenue, s.createInserted, s.err
}

func (s *stubVenueService) Update(_ context.Context, f venues.Fields) (models.Venue, error) {
	s.calls++
	s.lastFields = f
	return s.updateVenue, s.err
}

func (s *stubVenueService) Delete(_ context.Context, id string) (string, error) {
	s.calls++
	s.lastID = id
	if s.err != nil {
		return "", s.err
	}
	return id, nil
}

func (s *stubVenueService) List(_ context.Context, filter models.VenueFilter) ([]models.Venue, error) {
	s.calls++
	s.lastFilter = filter
	return s.listVenues, s.err
}

type stubUploadService struct {
	grant   uploads.Grant
	err     error
	lastReq uploads.Request
}

func (s *stubUploadService) Grant(_ context.Context, req uploads.Request) (uploads.Grant, error) {
	s.lastReq = req
	return s.grant, s.err
}

type stubIdentityVerifier struct {
	profile auth.GoogleProfile
	err     error
}

func (s stubIdentityVerifier) Verify(context.Context, string) (auth.GoogleProfile, error) {
	return s.profile, s.err
}

type stubHealth struct {
	now time.Time
	err error
}

func (s stubHealth) Now(context.Context) (time.Time, error) {
	return s.now, s.err
}

type testEnv struct {
	handler  http.Handler
	venues   *stubVenueService
	uploads  *stubUploadService
	identity *stubIdentityVerifier
	codec    *auth.SessionCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	codec, err := auth.NewSessionCodec("test-secret-0123456789")
	if err != nil {
		t.Fatalf("NewSessionCodec: %v", err)
	}
	env := &testEnv{
		venues:   &stubVenueService{},
		uploads:  &stubUploadService{},
		identity: &stubIdentityVerifier{},
		codec:    codec,
	}
	gate := auth.NewGate(codec, auth.Policy{AllowedEmails: []string{"ops@example.com"}, ImportSecret: testImportSecret})
	srv := New(env.venues, env.uploads, gate, codec, identityProxy{env.identity},
		stubHealth{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		Options{AllowedOrigins: []string{"http://localhost:5173"}, AuthRateLimit: 100})
	env.handler = srv.Routes()
	return env
}

// identityProxy lets tests swap verifier results after the router is built.
type identityProxy struct{ v *stubIdentityVerifier }

func (p identityProxy) Verify(ctx context.Context, token string) (auth.GoogleProfile, error) {
	return p.v.Verify(ctx, token)
}

func (e *testEnv) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func asAdmin() map[string]string {
	return map[string]string{auth.ImportSecretHeader: testImportSecret}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["ok"] != false || body["error"] != message {
		t.Fatalf("body = %v, want error %q", body, message)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct{ method, path string }{
		{http.MethodGet, "/api/venues-create"},
		{http.MethodPost, "/api/venues-update"},
		{http.MethodPost, "/api/venues-delete"},
		{http.MethodPost, "/api/venues-list"},
		{http.MethodGet, "/api/s3-presign"},
		{http.MethodGet, "/api/auth-google"},
	}
	for _, tt := range tests {
		rec := env.do(tt.method, tt.path, "", asAdmin())
		expectError(t, rec, http.StatusMethodNotAllowed, "Method not allowed")
	}
	if env.venues.calls != 0 {
		t.Fatalf("service called on wrong method")
	}
}

func TestGateRejections(t *testing.T) {
	env := newTestEnv(t)

	expectError(t, env.do(http.MethodGet, "/api/venues-list", "", nil), http.StatusUnauthorized, "UNAUTHENTICATED")
	expectError(t, env.do(http.MethodGet, "/api/venues-list", "",
		map[string]string{auth.ImportSecretHeader: "wrong"}), http.StatusForbidden, "FORBIDDEN")

	stranger, _ := env.codec.Issue(auth.Identity{Email: "stranger@example.com"})
	expectError(t, env.do(http.MethodGet, "/api/venues-list", "",
		map[string]string{"Cookie": auth.SessionCookie + "=" + stranger}), http.StatusForbidden, "FORBIDDEN")

	if env.venues.calls != 0 {
		t.Fatalf("service called for rejected requests")
	}
}

func TestCreateVenue(t *testing.T) {
	env := newTestEnv(t)
	env.venues.createVenue = models.Venue{ID: "x1", Name: "Cafe", Tags: []string{}}
	env.venues.createInserted = true

	rec := env.do(http.MethodPost, "/api/venues-create", `{"id":"x1","name":"Cafe"}`, asAdmin())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["ok"] != true || body["inserted"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	venue := body["venue"].(map[string]any)
	if venue["id"] != "x1" {
		t.Fatalf("unexpected venue %v", venue)
	}
	if !env.venues.lastFields.Has("name") {
		t.Fatalf("fields not passed through")
	}
}

func TestCreateVenueInvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(http.MethodPost, "/api/venues-create", `{"id":`, asAdmin()), http.StatusBadRequest, "Invalid JSON body")
	if env.venues.calls != 0 {
		t.Fatalf("service called with invalid JSON")
	}
}

func TestVenueErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &venues.ValidationError{Message: "priorityScore must be >= 0"}, http.StatusBadRequest, "priorityScore must be >= 0"},
		{"not found", store.ErrVenueNotFound, http.StatusNotFound, "Venue not found"},
		{"conflict", store.ErrVenueConflict, http.StatusConflict, "Duplicate venue id or slug"},
		{"storage", errors.New("connection refused"), http.StatusInternalServerError, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.venues.err = tt.err
			rec := env.do(http.MethodPatch, "/api/venues-update", `{"id":"x1","priorityScore":-1}`, asAdmin())
			expectError(t, rec, tt.status, tt.message)
		})
	}
}

func TestUpdateVenueAcceptsPutAndPatch(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		env := newTestEnv(t)
		env.venues.updateVenue = models.Venue{ID: "x1", Status: "hidden"}
		rec := env.do(method, "/api/venues-update", `{"id":"x1","status":"hidden"}`, asAdmin())
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", method, rec.Code)
		}
		venue := decodeBody(t, rec)["venue"].(map[string]any)
		if venue["status"] != "hidden" {
			t.Fatalf("%s: unexpected venue %v", method, venue)
		}
	}
}

func TestDeleteVenueIDSources(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodDelete, "/api/venues-delete?id=x1", "", asAdmin())
	if rec.Code != http.StatusOK || decodeBody(t, rec)["deletedId"] != "x1" {
		t.Fatalf("query id: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodDelete, "/api/venues-delete", `{"id":"x2"}`, asAdmin())
	if rec.Code != http.StatusOK || env.venues.lastID != "x2" {
		t.Fatalf("body id: status %d last %q", rec.Code, env.venues.lastID)
	}

	env.venues.err = store.ErrVenueNotFound
	expectError(t, env.do(http.MethodDelete, "/api/venues-delete?id=ghost", "", asAdmin()), http.StatusNotFound, "Venue not found")
}

func TestListVenues(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/venues-list?destinationSlug=Ahangama&q=surf&category=cafe", "", asAdmin())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"venues":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
	want := models.VenueFilter{DestinationSlug: "Ahangama", Query: "surf", Category: "cafe"}
	if env.venues.lastFilter != want {
		t.Fatalf("filter = %+v", env.venues.lastFilter)
	}
}

func TestPresign(t *testing.T) {
	env := newTestEnv(t)
	env.uploads.grant = uploads.Grant{URL: "https://b.s3.amazonaws.com", Key: "venues/x1/logo.jpg", MaxBytes: 51200, ContentType: "image/jpeg"}

	rec := env.do(http.MethodPost, "/api/s3-presign", `{"id":"x1","kind":"logo"}`, asAdmin())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	upload := decodeBody(t, rec)["upload"].(map[string]any)
	if upload["key"] != "venues/x1/logo.jpg" || upload["maxBytes"] != float64(51200) {
		t.Fatalf("unexpected upload %v", upload)
	}
	if env.uploads.lastReq != (uploads.Request{ID: "x1", Kind: "logo"}) {
		t.Fatalf("request = %+v", env.uploads.lastReq)
	}
}

func TestPresignErrors(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{uploads.ErrBucketNotConfigured, http.StatusInternalServerError, "Missing S3_BUCKET env var"},
		{uploads.ErrInvalidKind, http.StatusBadRequest, "Invalid kind"},
		{uploads.ErrMissingID, http.StatusBadRequest, "id is required"},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		env.uploads.err = tt.err
		expectError(t, env.do(http.MethodPost, "/api/s3-presign", `{"id":"x1","kind":"banner"}`, asAdmin()), tt.status, tt.message)
	}
}

func TestAuthGoogle(t *testing.T) {
	env := newTestEnv(t)

	expectError(t, env.do(http.MethodPost, "/api/auth-google", `{}`, nil), http.StatusBadRequest, "Missing idToken")

	env.identity.err = auth.ErrInvalidGoogleToken
	expectError(t, env.do(http.MethodPost, "/api/auth-google", `{"idToken":"t"}`, nil), http.StatusUnauthorized, "Invalid Google token")

	env.identity.err = nil
	env.identity.profile = auth.GoogleProfile{Email: "stranger@example.com"}
	expectError(t, env.do(http.MethodPost, "/api/auth-google", `{"idToken":"t"}`, nil), http.StatusForbidden, "Not authorized")

	env.identity.profile = auth.GoogleProfile{Email: "ops@example.com", Name: "Ops"}
	rec := env.do(http.MethodPost, "/api/auth-google", `{"idToken":"t"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	cookie := rec.Header().Get("Set-Cookie")
	for _, want := range []string{auth.SessionCookie + "=", "Path=/", "Max-Age=604800", "HttpOnly", "SameSite=Lax"} {
		if !strings.Contains(cookie, want) {
			t.Fatalf("cookie %q missing %q", cookie, want)
		}
	}
	if strings.Contains(cookie, "Secure") {
		t.Fatalf("Secure set outside production: %q", cookie)
	}

	// The issued cookie authorizes admin routes and the session probe.
	session := rec.Result().Cookies()[0]
	header := map[string]string{"Cookie": session.Name + "=" + session.Value}
	if rec := env.do(http.MethodGet, "/api/venues-list", "", header); rec.Code != http.StatusOK {
		t.Fatalf("venues-list with session: status %d", rec.Code)
	}
	me := env.do(http.MethodGet, "/api/auth-me", "", header)
	if me.Code != http.StatusOK {
		t.Fatalf("auth-me status = %d", me.Code)
	}
	user := decodeBody(t, me)["user"].(map[string]any)
	if user["email"] != "ops@example.com" || user["name"] != "Ops" || user["picture"] != nil {
		t.Fatalf("unexpected user %v", user)
	}
}

func TestAuthMeWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	for _, header := range []map[string]string{nil, {"Cookie": auth.SessionCookie + "=garbage"}} {
		rec := env.do(http.MethodGet, "/api/auth-me", "", header)
		if rec.Code != http.StatusUnauthorized || strings.TrimSpace(rec.Body.String()) != `{"ok":false}` {
			t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
		}
	}
}

func TestAuthLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/auth-logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, auth.SessionCookie+"=;") || !strings.Contains(cookie, "Max-Age=0") {
		t.Fatalf("unexpected cookie %q", cookie)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"time":"2025-01-01T00:00:00Z"`) {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodOptions, "/api/venues-update", "", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": http.MethodPatch,
	})
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("missing allow-origin: %v", rec.Header())
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials not allowed: %v", rec.Header())
	}
}
