package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type AccessLogFilter struct {
	DeviceID   string
	CardID     string
	From       *time.Time
	To         *time.Time
	Authorized *bool
	Method     types.VerificationMethod
	Limit      int // 0 = unlimited
}

// AccessLogStore is an append-only audit log: no update, no delete.
type AccessLogStore interface {
	AppendAccessLog(ctx context.Context, l types.AccessLog) (types.AccessLog, error)
	// ListAccessLogs returns newest first.
	ListAccessLogs(ctx context.Context, f AccessLogFilter) ([]types.AccessLog, error)
}
