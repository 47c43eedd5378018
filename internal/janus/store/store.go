package store

import (
	"context"
	"errors"
)

// Stores wrap these so services can translate them with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Registry is the full persistence surface. Each entity is a logically
// distinct collection; there are no cross-entity foreign keys, so cascades
// are the caller's job.
type Registry interface {
	OrganizationStore
	DepartmentStore
	CardStore
	BiometricStore
	DeviceStore
	EnrollmentStore
	AccessLogStore

	Ping(ctx context.Context) error
}
