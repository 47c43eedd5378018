package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type DeviceFilter struct {
	Active   *bool
	Location string
}

type DeviceStore interface {
	CreateDevice(ctx context.Context, d types.Device) error
	GetDevice(ctx context.Context, deviceID string) (types.Device, error)
	ListDevices(ctx context.Context, f DeviceFilter) ([]types.Device, error)
	UpdateDevice(ctx context.Context, d types.Device) error
	DeleteDevice(ctx context.Context, deviceID string) error

	// MarkSeen refreshes last-seen (and firmware version when non-empty)
	// for an existing device. Unknown devices return ErrNotFound.
	MarkSeen(ctx context.Context, deviceID, firmware string, t time.Time) error

	// SetRegistrationMode writes the flag and reports whether it changed.
	SetRegistrationMode(ctx context.Context, deviceID string, enabled bool, t time.Time) (bool, error)
}
