package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func (s *Server) handleSetRegistrationMode(w http.ResponseWriter, r *http.Request) {
	var req types.RegistrationModeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badJSON(w, err)
		return
	}
	if req.Enabled == nil {
		s.writeServiceError(w, r, fieldError("enabled", "is required"))
		return
	}

	d, err := s.enrollment.SetRegistrationMode(r.Context(), chi.URLParam(r, "deviceID"), *req.Enabled)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCardRead(w http.ResponseWriter, r *http.Request) {
	var req types.CardReadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badJSON(w, err)
		return
	}
	p, err := s.enrollment.SubmitCardRead(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req types.CaptureRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badJSON(w, err)
		return
	}
	resp, err := s.enrollment.SubmitCapture(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.PendingFilter{
		DeviceID: q.Get("device_id"),
		CardID:   q.Get("card_id"),
		Status:   types.PendingStatus(q.Get("status")),
	}
	switch f.Status {
	case "", types.PendingStatusPending, types.PendingStatusCompleted, types.PendingStatusFailed:
	default:
		s.writeServiceError(w, r, fieldError("status", "must be one of pending, completed, failed"))
		return
	}

	rows, err := s.enrollment.ListPending(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func fieldError(field, message string) error {
	return &service.ValidationError{Fields: []service.FieldError{{Field: field, Message: message}}}
}
