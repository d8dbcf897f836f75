package httpapi

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"venueadmin/internal/auth"
	"venueadmin/shared/go/logging"
)

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type sessionUser struct {
	Email   string  `json:"email"`
	Name    *string `json:"name"`
	Picture *string `json:"picture"`
	Iat     int64   `json:"iat"`
	Exp     int64   `json:"exp"`
}

type meResponse struct {
	OK   bool        `json:"ok"`
	User sessionUser `json:"user"`
}

// handleAuthGoogle exchanges a Google ID token for an operator session cookie.
func (s *Server) handleAuthGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil && len(body) > 0 {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}
	if req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "Missing idToken")
		return
	}

	profile, err := s.identity.Verify(r.Context(), req.IDToken)
	if err != nil {
		logging.WithContext(r.Context()).Warn().Err(err).Msg("Google token rejected")
		writeError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}
	if !s.gate.Allowed(profile.Email) {
		logging.WithContext(r.Context()).Warn().Str("email", profile.Email).Msg("Operator not on allow-list")
		writeError(w, http.StatusForbidden, "Not authorized")
		return
	}

	token, err := s.sessions.Issue(auth.Identity{
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.SessionTTL.Seconds()),
		Secure:   s.opts.SecureCookies,
	})
	logging.WithContext(r.Context()).Info().Str("email", profile.Email).Msg("Operator signed in")
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleAuthMe reports the session in the cookie, if it verifies.
func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.SessionToken(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, okResponse{OK: false})
		return
	}
	id, err := s.sessions.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, okResponse{OK: false})
		return
	}

	user := sessionUser{Email: id.Email, Exp: id.ExpiresAt.Unix()}
	if id.Name != "" {
		user.Name = &id.Name
	}
	if id.Picture != "" {
		user.Picture = &id.Picture
	}
	if !id.IssuedAt.IsZero() {
		user.Iat = id.IssuedAt.Unix()
	}
	writeJSON(w, http.StatusOK, meResponse{OK: true, User: user})
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
