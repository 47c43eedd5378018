package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

var ErrInvalidDeviceID = &ValidationError{Fields: []FieldError{{Field: "device_id", Message: "is required"}}}

// DeviceRegistry is the read side of the device table shared by the
// heartbeat, access and enrollment paths. It also owns the per-device
// locks, so decisions and enrollment transitions on one device never
// interleave.
type DeviceRegistry struct {
	store store.DeviceStore
	now   func() time.Time
	locks keyedMutex
}

func NewDeviceRegistry(st store.DeviceStore, now func() time.Time) *DeviceRegistry {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DeviceRegistry{store: st, now: now}
}

// Lock blocks until deviceID is free and returns its unlock func.
func (r *DeviceRegistry) Lock(deviceID string) func() {
	return r.locks.Lock(deviceID)
}

// Lookup returns the device and whether it is registered.
func (r *DeviceRegistry) Lookup(ctx context.Context, deviceID string) (types.Device, bool, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return types.Device{}, false, nil
	}
	d, err := r.store.GetDevice(ctx, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return types.Device{}, false, nil
	}
	if err != nil {
		return types.Device{}, false, err
	}
	return d, true, nil
}

// NoteSeen refreshes last-seen for a registered device. Unknown devices are
// ignored.
func (r *DeviceRegistry) NoteSeen(ctx context.Context, deviceID, firmware string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	err := r.store.MarkSeen(ctx, deviceID, strings.TrimSpace(firmware), r.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
