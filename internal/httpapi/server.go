package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venueadmin/internal/app/venues"
	"venueadmin/internal/auth"
	"venueadmin/internal/uploads"
	"venueadmin/shared/go/middleware"
	"venueadmin/shared/go/models"
)

// VenueService exposes venue workflows.
type VenueService interface {
	Create(ctx context.Context, fields venues.Fields) (models.Venue, bool, error)
	Update(ctx context.Context, fields venues.Fields) (models.Venue, error)
	Delete(ctx context.Context, id string) (string, error)
	List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, error)
}

// UploadService issues presigned image upload grants.
type UploadService interface {
	Grant(ctx context.Context, req uploads.Request) (uploads.Grant, error)
}

// Authorizer decides whether a request may act on venue data.
type Authorizer interface {
	Authorize(r *http.Request) (auth.Identity, error)
	Allowed(email string) bool
}

// SessionCodec issues and verifies operator session tokens.
type SessionCodec interface {
	Issue(id auth.Identity) (string, error)
	Verify(token string) (auth.Identity, error)
}

// IdentityVerifier checks third-party ID tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (auth.GoogleProfile, error)
}

// HealthChecker reports the database clock.
type HealthChecker interface {
	Now(ctx context.Context) (time.Time, error)
}

// Options holds transport-level settings.
type Options struct {
	AllowedOrigins []string
	SecureCookies  bool
	AuthRateLimit  int // identity exchanges per IP per minute, 0 disables
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	venues   VenueService
	uploads  UploadService
	gate     Authorizer
	sessions SessionCodec
	identity IdentityVerifier
	health   HealthChecker
	opts     Options
}

// New configures a Server.
func New(
	venues VenueService,
	uploads UploadService,
	gate Authorizer,
	sessions SessionCodec,
	identity IdentityVerifier,
	health HealthChecker,
	opts Options,
) *Server {
	return &Server{
		venues:   venues,
		uploads:  uploads,
		gate:     gate,
		sessions: sessions,
		identity: identity,
		health:   health,
		opts:     opts,
	}
}

// Routes exposes the admin API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", auth.ImportSecretHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Post("/venues-create", s.handleCreateVenue)
			r.Put("/venues-update", s.handleUpdateVenue)
			r.Patch("/venues-update", s.handleUpdateVenue)
			r.Delete("/venues-delete", s.handleDeleteVenue)
			r.Get("/venues-list", s.handleListVenues)
			r.Post("/s3-presign", s.handlePresign)
		})

		r.With(s.authRateLimit()).Post("/auth-google", s.handleAuthGoogle)
		r.Get("/auth-me", s.handleAuthMe)
		r.Post("/auth-logout", s.handleAuthLogout)
	})

	return r
}

func (s *Server) authRateLimit() func(http.Handler) http.Handler {
	if s.opts.AuthRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.opts.AuthRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
		}),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now, err := s.health.Now(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{OK: true, Time: now})
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type healthResponse struct {
	OK   bool      `json:"ok"`
	Time time.Time `json:"time"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{OK: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
