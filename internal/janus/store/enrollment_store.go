package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type PendingFilter struct {
	DeviceID string
	CardID   string
	Status   types.PendingStatus
}

// EnrollmentStore persists handshake rows. The allocate-and-reserve and
// complete operations are single transactions.
type EnrollmentStore interface {
	// ReservePending allocates the next fingerprint id as
	// max(high-water mark, max committed card fingerprint id) + 1, advances
	// the high-water mark and inserts p as pending. The returned row carries
	// the allocated id. ErrConflict if the device or the card already has a
	// pending row.
	ReservePending(ctx context.Context, p types.PendingRegistration) (types.PendingRegistration, error)

	// GetPendingForDevice returns the device's unresolved row, or ErrNotFound.
	GetPendingForDevice(ctx context.Context, deviceID string) (types.PendingRegistration, error)
	ListPending(ctx context.Context, f PendingFilter) ([]types.PendingRegistration, error)

	// ListStalePending returns pending rows created before cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]types.PendingRegistration, error)

	// CompleteEnrollment binds the template and the reserved fingerprint id
	// to the card (creating it from the staged profile when absent), marks
	// the row completed and clears the device's registration flag.
	// ErrConflict on a uniqueness violation, ErrNotFound if the row is no
	// longer pending.
	CompleteEnrollment(ctx context.Context, pendingID, templateData string, at time.Time) (types.Card, error)

	// FailPending marks a pending row failed and clears the device's
	// registration flag. ErrNotFound if the row is no longer pending.
	FailPending(ctx context.Context, pendingID, reason string, at time.Time) error
}
