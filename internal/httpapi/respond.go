package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
)

type errorBody struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Fields  []service.FieldError   `json:"fields,omitempty"`
	Report  *service.CascadeReport `json:"report,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// writeServiceError maps the service error taxonomy onto HTTP. Anything
// unrecognized is logged and surfaces as a 500 without internals.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *service.ValidationError
		nf *service.NotFoundError
		ce *service.ConflictError
		te *service.EnrollmentTimeoutError
		ci *service.CascadeIncompleteError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: err.Error(), Fields: ve.Fields})
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &ce):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrDeviceEnrolling):
		writeError(w, http.StatusConflict, "device_enrolling", err.Error())
	case errors.As(err, &te):
		writeError(w, http.StatusConflict, "enrollment_timeout", err.Error())
	case errors.As(err, &ci):
		s.logger.Error("cascade incomplete", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "cascade_incomplete", Message: err.Error(), Report: &ci.Report})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

// decodeJSON reads a JSON body, rejecting unknown fields and trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func (s *Server) badJSON(w http.ResponseWriter, err error) {
	s.logger.Debug("bad json body", "err", err)
	writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
}

