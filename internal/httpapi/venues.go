package httpapi

import (
	"errors"
	"io"
	"net/http"

	"venueadmin/internal/app/venues"
	"venueadmin/internal/auth"
	"venueadmin/internal/metrics"
	"venueadmin/internal/store"
	"venueadmin/shared/go/logging"
	"venueadmin/shared/go/models"
)

const maxBodyBytes = 1 << 20

type createVenueResponse struct {
	OK       bool         `json:"ok"`
	Inserted bool         `json:"inserted"`
	Venue    models.Venue `json:"venue"`
}

type venueResponse struct {
	OK    bool         `json:"ok"`
	Venue models.Venue `json:"venue"`
}

type deleteVenueResponse struct {
	OK        bool   `json:"ok"`
	DeletedID string `json:"deletedId"`
}

type listVenuesResponse struct {
	OK     bool           `json:"ok"`
	Venues []models.Venue `json:"venues"`
}

// requireAdmin rejects requests the gate does not authorize and tags the
// request context with the operator.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.gate.Authorize(r)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthenticated):
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED")
			case errors.Is(err, auth.ErrForbidden):
				writeError(w, http.StatusForbidden, "FORBIDDEN")
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(logging.WithOperator(r.Context(), id.Email)))
	})
}

func (s *Server) handleCreateVenue(w http.ResponseWriter, r *http.Request) {
	fields, ok := readFields(w, r)
	if !ok {
		return
	}

	venue, inserted, err := s.venues.Create(r.Context(), fields)
	metrics.RecordVenueWrite("create", err)
	if err != nil {
		writeVenueError(w, r, err)
		return
	}

	logging.WithContext(r.Context()).Info().
		Str("venue_id", venue.ID).
		Bool("inserted", inserted).
		Msg("Venue saved")
	writeJSON(w, http.StatusOK, createVenueResponse{OK: true, Inserted: inserted, Venue: venue})
}

func (s *Server) handleUpdateVenue(w http.ResponseWriter, r *http.Request) {
	fields, ok := readFields(w, r)
	if !ok {
		return
	}

	venue, err := s.venues.Update(r.Context(), fields)
	metrics.RecordVenueWrite("update", err)
	if err != nil {
		writeVenueError(w, r, err)
		return
	}

	logging.WithContext(r.Context()).Info().Str("venue_id", venue.ID).Msg("Venue updated")
	writeJSON(w, http.StatusOK, venueResponse{OK: true, Venue: venue})
}

func (s *Server) handleDeleteVenue(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		// The body is optional here; unreadable bodies fall through to the
		// "id is required" check.
		body, _ := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if fields, err := venues.ParseFields(body); err == nil {
			id, _ = fields.Text("id")
		}
	}

	deleted, err := s.venues.Delete(r.Context(), id)
	metrics.RecordVenueWrite("delete", err)
	if err != nil {
		writeVenueError(w, r, err)
		return
	}

	logging.WithContext(r.Context()).Info().Str("venue_id", deleted).Msg("Venue deleted")
	writeJSON(w, http.StatusOK, deleteVenueResponse{OK: true, DeletedID: deleted})
}

func (s *Server) handleListVenues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.venues.List(r.Context(), models.VenueFilter{
		DestinationSlug: q.Get("destinationSlug"),
		Query:           q.Get("q"),
		Category:        q.Get("category"),
	})
	if err != nil {
		writeVenueError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Venue{}
	}
	writeJSON(w, http.StatusOK, listVenuesResponse{OK: true, Venues: list})
}

func readFields(w http.ResponseWriter, r *http.Request) (venues.Fields, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	fields, err := venues.ParseFields(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return nil, false
	}
	return fields, true
}

func writeVenueError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *venues.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, store.ErrVenueNotFound):
		writeError(w, http.StatusNotFound, "Venue not found")
	case errors.Is(err, store.ErrVenueConflict):
		writeError(w, http.StatusConflict, "Duplicate venue id or slug")
	default:
		logging.WithContext(r.Context()).Error().Err(err).Msg("Venue operation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
