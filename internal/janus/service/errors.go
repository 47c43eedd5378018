package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
)

// ErrDeviceEnrolling rejects read events from a device in registration mode.
var ErrDeviceEnrolling = errors.New("device is in registration mode")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every offending input field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %q conflicts with existing state", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Reason)
}

// EnrollmentTimeoutError is returned when a capture arrives after the
// handshake window closed. The pending row is already failed.
type EnrollmentTimeoutError struct {
	PendingID string
	DeviceID  string
	Age       time.Duration
}

func (e *EnrollmentTimeoutError) Error() string {
	return fmt.Sprintf("enrollment %s on device %s timed out after %s", e.PendingID, e.DeviceID, e.Age.Round(time.Millisecond))
}

// CascadeIncompleteError carries the per-step report of a cascade in which
// at least one deletion failed. Nothing is rolled back.
type CascadeIncompleteError struct {
	Report CascadeReport
}

func (e *CascadeIncompleteError) Error() string {
	var failed int
	for _, s := range e.Report.Steps {
		failed += len(s.Failed)
	}
	return fmt.Sprintf("cascade delete of %s %q incomplete: %d deletion(s) failed", e.Report.Entity, e.Report.ID, failed)
}

// translate turns store sentinels into the service taxonomy.
func translate(entity, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{Entity: entity, ID: id}
	case errors.Is(err, store.ErrConflict):
		return &ConflictError{Entity: entity, ID: id}
	default:
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
}
