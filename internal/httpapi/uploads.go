package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"venueadmin/internal/uploads"
	"venueadmin/shared/go/logging"
)

type presignResponse struct {
	OK     bool          `json:"ok"`
	Upload uploads.Grant `json:"upload"`
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req uploads.Request
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil && len(body) > 0 {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	grant, err := s.uploads.Grant(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrBucketNotConfigured):
			writeError(w, http.StatusInternalServerError, "Missing S3_BUCKET env var")
		case errors.Is(err, uploads.ErrMissingID):
			writeError(w, http.StatusBadRequest, "id is required")
		case errors.Is(err, uploads.ErrInvalidKind):
			writeError(w, http.StatusBadRequest, "Invalid kind")
		default:
			logging.WithContext(r.Context()).Error().Err(err).Msg("Upload grant failed")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logging.WithContext(r.Context()).Info().Str("key", grant.Key).Msg("Upload grant issued")
	writeJSON(w, http.StatusOK, presignResponse{OK: true, Upload: grant})
}
