package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

const DefaultEnrollmentTimeout = 2 * time.Minute

type EnrollmentConfig struct {
	// Timeout bounds AwaitingBiometricCapture. Defaults to 2m.
	Timeout time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
	// Devices supplies the per-device locks shared with AccessService.
	// Defaults to a private registry over the store.
	Devices *DeviceRegistry
}

// EnrollmentCoordinator drives the card-read then fingerprint-capture
// handshake. Every transition for a device runs under that device's lock;
// fingerprint ids come from the store's atomic ReservePending.
type EnrollmentCoordinator struct {
	registry store.Registry
	bus      notify.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
	devices  *DeviceRegistry
}

func NewEnrollmentCoordinator(
	reg store.Registry,
	bus notify.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg EnrollmentConfig,
) *EnrollmentCoordinator {
	if bus == nil {
		bus = notify.Discard{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEnrollmentTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Devices == nil {
		cfg.Devices = NewDeviceRegistry(reg, cfg.Now)
	}
	return &EnrollmentCoordinator{
		registry: reg,
		bus:      bus,
		metrics:  m,
		logger:   logger,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
		devices:  cfg.Devices,
	}
}

func (c *EnrollmentCoordinator) Timeout() time.Duration { return c.timeout }

// SetRegistrationMode switches a device in or out of enrollment. Writing the
// current value again is a no-op. Disabling mid-handshake fails the pending
// row as cancelled.
func (c *EnrollmentCoordinator) SetRegistrationMode(ctx context.Context, deviceID string, enabled bool) (types.Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return types.Device{}, ErrInvalidDeviceID
	}

	unlock := c.devices.Lock(deviceID)
	defer unlock()

	dev, err := c.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return types.Device{}, translate("device", deviceID, err)
	}

	pending, hasPending, err := c.pendingFor(ctx, deviceID)
	if err != nil {
		return types.Device{}, err
	}

	now := c.now()
	if enabled {
		if hasPending {
			return types.Device{}, &ConflictError{Entity: "device", ID: deviceID, Reason: "enrollment already in progress"}
		}
		if dev.RegistrationMode {
			return dev, nil
		}
		if _, err := c.registry.SetRegistrationMode(ctx, deviceID, true, now); err != nil {
			return types.Device{}, translate("device", deviceID, err)
		}
	} else {
		if !dev.RegistrationMode && !hasPending {
			return dev, nil
		}
		if hasPending {
			if err := c.fail(ctx, pending, types.FailureCancelled, now); err != nil {
				return types.Device{}, err
			}
		} else if _, err := c.registry.SetRegistrationMode(ctx, deviceID, false, now); err != nil {
			return types.Device{}, translate("device", deviceID, err)
		}
	}

	dev, err = c.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return types.Device{}, translate("device", deviceID, err)
	}
	c.logger.Info("registration mode changed", "device_id", deviceID, "enabled", enabled)
	c.bus.Publish(notify.Event{Type: notify.EntityUpdated, Entity: notify.EntityDevice, Payload: dev, At: now})
	return dev, nil
}

// SubmitCardRead records the presented card and reserves the sensor slot
// the device must store the template in.
func (c *EnrollmentCoordinator) SubmitCardRead(ctx context.Context, req types.CardReadRequest) (types.PendingRegistration, error) {
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.CardID = strings.TrimSpace(req.CardID)

	var v validator
	v.required("device_id", req.DeviceID)
	v.required("card_id", req.CardID)
	if err := v.err(); err != nil {
		return types.PendingRegistration{}, err
	}

	unlock := c.devices.Lock(req.DeviceID)
	defer unlock()

	dev, err := c.registry.GetDevice(ctx, req.DeviceID)
	if err != nil {
		return types.PendingRegistration{}, translate("device", req.DeviceID, err)
	}
	if !dev.Active {
		return types.PendingRegistration{}, &ConflictError{Entity: "device", ID: dev.DeviceID, Reason: "device is inactive"}
	}
	if !dev.RegistrationMode {
		return types.PendingRegistration{}, &ConflictError{Entity: "device", ID: dev.DeviceID, Reason: "device is not in registration mode"}
	}

	_, err = c.registry.GetCard(ctx, req.CardID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := c.checkProfile(ctx, req.Profile); err != nil {
			return types.PendingRegistration{}, err
		}
	case err != nil:
		return types.PendingRegistration{}, translate("card", req.CardID, err)
	default:
		// Re-enrollment keeps the stored holder fields.
		req.Profile = types.CardProfile{}
	}

	p, err := c.registry.ReservePending(ctx, types.PendingRegistration{
		CardID:    req.CardID,
		DeviceID:  req.DeviceID,
		Profile:   req.Profile,
		CreatedAt: c.now(),
	})
	if errors.Is(err, store.ErrConflict) {
		return types.PendingRegistration{}, &ConflictError{Entity: "card", ID: req.CardID, Reason: "enrollment already in progress"}
	}
	if err != nil {
		return types.PendingRegistration{}, translate("pending registration", req.CardID, err)
	}

	c.logger.Info("enrollment started",
		"device_id", p.DeviceID, "card_id", p.CardID, "fingerprint_id", p.FingerprintID, "pending_id", p.ID)
	return p, nil
}

func (c *EnrollmentCoordinator) checkProfile(ctx context.Context, p types.CardProfile) error {
	if err := ValidateCardProfile(p); err != nil {
		return err
	}
	dept, err := c.registry.GetDepartment(ctx, p.DepartmentID)
	if errors.Is(err, store.ErrNotFound) {
		return invalid("profile.department_id", "references an unknown department")
	}
	if err != nil {
		return translate("department", p.DepartmentID, err)
	}
	if dept.OrganizationID != p.OrganizationID {
		return invalid("profile.department_id", "belongs to a different organization")
	}
	if _, err := c.registry.GetOrganization(ctx, p.OrganizationID); errors.Is(err, store.ErrNotFound) {
		return invalid("profile.organization_id", "references an unknown organization")
	} else if err != nil {
		return translate("organization", p.OrganizationID, err)
	}
	return nil
}

// SubmitCapture resolves the device's pending handshake with the scan
// outcome reported by the device.
func (c *EnrollmentCoordinator) SubmitCapture(ctx context.Context, req types.CaptureRequest) (types.CaptureResponse, error) {
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		return types.CaptureResponse{}, ErrInvalidDeviceID
	}

	unlock := c.devices.Lock(req.DeviceID)
	defer unlock()

	p, ok, err := c.pendingFor(ctx, req.DeviceID)
	if err != nil {
		return types.CaptureResponse{}, err
	}
	if !ok {
		return types.CaptureResponse{}, &NotFoundError{Entity: "pending registration", ID: req.DeviceID}
	}
	if req.FingerprintID != p.FingerprintID {
		return types.CaptureResponse{}, invalid("fingerprint_id", "does not match the reserved fingerprint id")
	}

	now := c.now()
	if age := now.Sub(p.CreatedAt); age > c.timeout {
		if err := c.fail(ctx, p, types.FailureTimeout, now); err != nil {
			return types.CaptureResponse{}, err
		}
		return types.CaptureResponse{}, &EnrollmentTimeoutError{PendingID: p.ID, DeviceID: p.DeviceID, Age: age}
	}

	if req.Success != nil && !*req.Success {
		reason := strings.TrimSpace(req.FailureReason)
		if reason == "" {
			reason = types.FailureScan
		}
		if err := c.fail(ctx, p, reason, now); err != nil {
			return types.CaptureResponse{}, err
		}
		return types.CaptureResponse{Registration: c.reload(ctx, p)}, nil
	}

	if strings.TrimSpace(req.TemplateData) == "" {
		return types.CaptureResponse{}, invalid("template_data", "is required for a successful capture")
	}

	_, existed := c.cardExists(ctx, p.CardID)
	card, err := c.registry.CompleteEnrollment(ctx, p.ID, req.TemplateData, now)
	if errors.Is(err, store.ErrConflict) {
		c.logger.Warn("enrollment rejected at completion", "pending_id", p.ID, "card_id", p.CardID, "err", err)
		if ferr := c.fail(ctx, p, types.FailureConflict, now); ferr != nil {
			return types.CaptureResponse{}, ferr
		}
		return types.CaptureResponse{}, &ConflictError{Entity: "card", ID: p.CardID, Reason: "staged card conflicts with the current registry"}
	}
	if err != nil {
		return types.CaptureResponse{}, translate("pending registration", p.ID, err)
	}

	c.metrics.IncEnrollment(string(types.PendingStatusCompleted), "")
	c.logger.Info("enrollment completed",
		"device_id", p.DeviceID, "card_id", card.CardID, "fingerprint_id", card.FingerprintID)

	kind := notify.EntityAdded
	if existed {
		kind = notify.EntityUpdated
	}
	c.bus.Publish(notify.Event{Type: kind, Entity: notify.EntityCard, Payload: card, At: now})

	return types.CaptureResponse{Registration: c.reload(ctx, p), Card: &card}, nil
}

// ExpireStale fails every pending handshake older than the timeout and
// releases its device. A failure on one row does not stop the sweep; the
// errors are joined. Returns the number expired.
func (c *EnrollmentCoordinator) ExpireStale(ctx context.Context) (int, error) {
	now := c.now()
	stale, err := c.registry.ListStalePending(ctx, now.Add(-c.timeout))
	if err != nil {
		return 0, err
	}

	var (
		expired int
		errs    []error
	)
	for _, p := range stale {
		unlock := c.devices.Lock(p.DeviceID)
		err := c.fail(ctx, p, types.FailureTimeout, now)
		unlock()
		var nf *NotFoundError
		switch {
		case errors.As(err, &nf):
			// Resolved concurrently.
		case err != nil:
			c.logger.Error("expire enrollment failed", "pending_id", p.ID, "device_id", p.DeviceID, "err", err)
			errs = append(errs, fmt.Errorf("expire %s: %w", p.ID, err))
		default:
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

func (c *EnrollmentCoordinator) ListPending(ctx context.Context, f store.PendingFilter) ([]types.PendingRegistration, error) {
	return c.registry.ListPending(ctx, f)
}

func (c *EnrollmentCoordinator) pendingFor(ctx context.Context, deviceID string) (types.PendingRegistration, bool, error) {
	p, err := c.registry.GetPendingForDevice(ctx, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return types.PendingRegistration{}, false, nil
	}
	if err != nil {
		return types.PendingRegistration{}, false, err
	}
	return p, true, nil
}

func (c *EnrollmentCoordinator) fail(ctx context.Context, p types.PendingRegistration, reason string, now time.Time) error {
	if err := c.registry.FailPending(ctx, p.ID, reason, now); err != nil {
		return translate("pending registration", p.ID, err)
	}
	c.metrics.IncEnrollment(string(types.PendingStatusFailed), reason)
	c.logger.Warn("enrollment failed",
		"device_id", p.DeviceID, "card_id", p.CardID, "fingerprint_id", p.FingerprintID, "reason", reason)

	if dev, err := c.registry.GetDevice(ctx, p.DeviceID); err == nil {
		c.bus.Publish(notify.Event{Type: notify.EntityUpdated, Entity: notify.EntityDevice, Payload: dev, At: now})
	}
	return nil
}

func (c *EnrollmentCoordinator) cardExists(ctx context.Context, cardID string) (types.Card, bool) {
	card, err := c.registry.GetCard(ctx, cardID)
	return card, err == nil
}

// reload re-reads p after resolution; falls back to p on error.
func (c *EnrollmentCoordinator) reload(ctx context.Context, p types.PendingRegistration) types.PendingRegistration {
	rows, err := c.registry.ListPending(ctx, store.PendingFilter{DeviceID: p.DeviceID, CardID: p.CardID})
	if err != nil {
		return p
	}
	for _, r := range rows {
		if r.ID == p.ID {
			return r
		}
	}
	return p
}
