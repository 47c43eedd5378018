package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func (s *Store) CreateDevice(_ context.Context, d types.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.DeviceID]; ok {
		return fmt.Errorf("device %s: %w", d.DeviceID, store.ErrConflict)
	}
	s.devices[d.DeviceID] = d
	return nil
}

func (s *Store) GetDevice(_ context.Context, deviceID string) (types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return types.Device{}, fmt.Errorf("device %s: %w", deviceID, store.ErrNotFound)
	}
	return d, nil
}

func (s *Store) ListDevices(_ context.Context, f store.DeviceFilter) ([]types.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Device, 0, len(s.devices))
	for _, d := range s.devices {
		if f.Active != nil && d.Active != *f.Active {
			continue
		}
		if f.Location != "" && !strings.EqualFold(d.Location, f.Location) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (s *Store) UpdateDevice(_ context.Context, d types.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.DeviceID]; !ok {
		return fmt.Errorf("device %s: %w", d.DeviceID, store.ErrNotFound)
	}
	s.devices[d.DeviceID] = d
	return nil
}

func (s *Store) DeleteDevice(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; !ok {
		return fmt.Errorf("device %s: %w", deviceID, store.ErrNotFound)
	}
	delete(s.devices, deviceID)
	return nil
}

func (s *Store) MarkSeen(_ context.Context, deviceID, firmware string, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return fmt.Errorf("device %s: %w", deviceID, store.ErrNotFound)
	}
	t = t.UTC()
	d.LastSeenAt = &t
	if firmware != "" {
		d.FirmwareVersion = firmware
	}
	s.devices[deviceID] = d
	return nil
}

func (s *Store) SetRegistrationMode(_ context.Context, deviceID string, enabled bool, t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return false, fmt.Errorf("device %s: %w", deviceID, store.ErrNotFound)
	}
	if d.RegistrationMode == enabled {
		return false, nil
	}
	d.RegistrationMode = enabled
	d.UpdatedAt = t.UTC()
	s.devices[deviceID] = d
	return true, nil
}

// releaseDeviceLocked clears the registration flag, ignoring unknown devices.
func (s *Store) releaseDeviceLocked(deviceID string, t time.Time) {
	if d, ok := s.devices[deviceID]; ok && d.RegistrationMode {
		d.RegistrationMode = false
		d.UpdatedAt = t.UTC()
		s.devices[deviceID] = d
	}
}
