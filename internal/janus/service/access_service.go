package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

// AccessService turns a device read into a verdict and an audit row.
// Decisions for one device are serialized through the DeviceRegistry lock,
// which enrollment shares; different devices proceed in parallel.
type AccessService struct {
	registry store.Registry
	devices  *DeviceRegistry
	bus      notify.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewAccessService(
	reg store.Registry,
	devices *DeviceRegistry,
	bus notify.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AccessService {
	if bus == nil {
		bus = notify.Discard{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AccessService{
		registry: reg,
		devices:  devices,
		bus:      bus,
		metrics:  m,
		logger:   logger,
		now:      devices.now,
	}
}

// Decide validates req, evaluates it and writes the AccessLog. A denial is
// a normal response, not an error. Errors mean no decision was recorded.
func (s *AccessService) Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	start := time.Now()

	req, err := normalizeAccessRequest(req)
	if err != nil {
		return types.AccessResponse{}, err
	}

	unlock := s.devices.Lock(req.DeviceID)
	defer unlock()

	dev, known, err := s.devices.Lookup(ctx, req.DeviceID)
	if err != nil {
		return types.AccessResponse{}, err
	}
	if !known {
		return types.AccessResponse{}, &NotFoundError{Entity: "device", ID: req.DeviceID}
	}
	if err := s.devices.NoteSeen(ctx, req.DeviceID, ""); err != nil {
		s.logger.Warn("access: mark seen failed", "device_id", req.DeviceID, "err", err)
	}
	if dev.RegistrationMode {
		return types.AccessResponse{}, ErrDeviceEnrolling
	}

	now := s.now()
	entry := types.AccessLog{
		DeviceID:      req.DeviceID,
		CardID:        req.CardID,
		Timestamp:     now,
		Method:        req.Method,
		FingerprintID: req.FingerprintID,
		Location:      dev.Location,
		RequestedAt:   parseOptionalTimestamp(req.RequestedAt),
	}

	var card types.Card
	if !dev.Active {
		entry.Reason = types.ReasonDeviceInactive
	} else {
		card, entry.Reason, err = s.evaluate(ctx, req, now)
		if err != nil {
			return types.AccessResponse{}, err
		}
		if entry.CardID == "" && card.CardID != "" {
			entry.CardID = card.CardID
		}
	}
	entry.Authorized = entry.Reason == ""

	// The audit row is mandatory: no row, no verdict.
	entry, err = s.registry.AppendAccessLog(ctx, entry)
	if err != nil {
		return types.AccessResponse{}, err
	}

	if entry.Authorized {
		if err := s.registry.TouchCardAccess(ctx, entry.CardID, now); err != nil {
			s.logger.Warn("access: update last access failed", "card_id", entry.CardID, "err", err)
		}
	}

	kind := notify.AccessDenied
	if entry.Authorized {
		kind = notify.AccessGranted
	}
	s.bus.Publish(notify.Event{Type: kind, Entity: notify.EntityAccessLog, Payload: entry, At: now})
	s.metrics.ObserveDecision(entry.Authorized, string(entry.Method), time.Since(start))

	return types.AccessResponse{
		OK:         true,
		Authorized: entry.Authorized,
		Reason:     entry.Reason,
		DeviceID:   entry.DeviceID,
		LogID:      entry.ID,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}

// evaluate resolves the card and applies the method check. An empty reason
// means authorized.
func (s *AccessService) evaluate(ctx context.Context, req types.AccessRequest, now time.Time) (types.Card, string, error) {
	var (
		card types.Card
		err  error
	)
	if req.CardID != "" {
		card, err = s.registry.GetCard(ctx, req.CardID)
	} else {
		card, err = s.registry.GetCardByFingerprint(ctx, *req.FingerprintID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return types.Card{}, types.ReasonUnknownCard, nil
	}
	if err != nil {
		return types.Card{}, "", err
	}
	if !card.Active || card.Expired(now) {
		return card, types.ReasonUnknownCard, nil
	}

	switch req.Method {
	case types.MethodFingerprint, types.MethodBoth:
		if *req.FingerprintID != card.FingerprintID {
			return card, types.ReasonBiometricMismatch, nil
		}
	}
	return card, "", nil
}

// normalizeAccessRequest trims ids, infers a missing method from the
// credentials presented and checks each method has what it needs.
func normalizeAccessRequest(req types.AccessRequest) (types.AccessRequest, error) {
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.CardID = strings.TrimSpace(req.CardID)
	req.Method = types.VerificationMethod(strings.ToLower(strings.TrimSpace(string(req.Method))))

	if req.Method == "" {
		switch {
		case req.CardID != "" && req.FingerprintID != nil:
			req.Method = types.MethodBoth
		case req.FingerprintID != nil:
			req.Method = types.MethodFingerprint
		default:
			req.Method = types.MethodCard
		}
	}

	var v validator
	v.required("device_id", req.DeviceID)
	if !req.Method.Valid() {
		v.add("verification_method", "must be one of card, fingerprint, both")
	}
	if (req.Method == types.MethodCard || req.Method == types.MethodBoth) && req.CardID == "" {
		v.add("card_id", "is required for verification method "+string(req.Method))
	}
	if (req.Method == types.MethodFingerprint || req.Method == types.MethodBoth) && req.FingerprintID == nil {
		v.add("fingerprint_id", "is required for verification method "+string(req.Method))
	}
	return req, v.err()
}

// parseOptionalTimestamp parses a device-reported RFC 3339 timestamp.
// Returns nil if the string is empty or unparseable.
func parseOptionalTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
