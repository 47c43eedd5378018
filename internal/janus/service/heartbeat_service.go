package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// HeartbeatService answers device liveness pings. The response tells the
// device which mode it should be in.
type HeartbeatService struct {
	registry *DeviceRegistry
	logger   *slog.Logger
	now      func() time.Time
}

func NewHeartbeatService(reg *DeviceRegistry, logger *slog.Logger) *HeartbeatService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HeartbeatService{registry: reg, logger: logger, now: reg.now}
}

func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return types.HeartbeatResponse{}, ErrInvalidDeviceID
	}

	d, known, err := s.registry.Lookup(ctx, deviceID)
	if err != nil {
		return types.HeartbeatResponse{}, err
	}
	if known {
		if err := s.registry.NoteSeen(ctx, deviceID, req.FirmwareVersion); err != nil {
			s.logger.Warn("heartbeat: mark seen failed", "device_id", deviceID, "err", err)
		}
	} else {
		s.logger.Info("heartbeat from unregistered device", "device_id", deviceID, "ip", req.IP)
	}

	return types.HeartbeatResponse{
		OK:               true,
		Known:            known,
		DeviceID:         deviceID,
		RegistrationMode: known && d.RegistrationMode,
		ServerTime:       s.now().Format(time.RFC3339Nano),
	}, nil
}
