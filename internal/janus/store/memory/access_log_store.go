package memory

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func (s *Store) AppendAccessLog(_ context.Context, l types.AccessLog) (types.AccessLog, error) {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	l.ID = s.nextLogID
	s.logs = append(s.logs, l)
	return l, nil
}

func (s *Store) ListAccessLogs(_ context.Context, f store.AccessLogFilter) ([]types.AccessLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AccessLog, 0)
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if !matchLog(l, f) {
			continue
		}
		out = append(out, l)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// AccessLogs returns a copy of all recorded logs in append order.  Test-only helper.
func (s *Store) AccessLogs() []types.AccessLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.AccessLog, len(s.logs))
	copy(out, s.logs)
	return out
}

func matchLog(l types.AccessLog, f store.AccessLogFilter) bool {
	if f.DeviceID != "" && l.DeviceID != f.DeviceID {
		return false
	}
	if f.CardID != "" && l.CardID != f.CardID {
		return false
	}
	if f.From != nil && l.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && l.Timestamp.After(*f.To) {
		return false
	}
	if f.Authorized != nil && l.Authorized != *f.Authorized {
		return false
	}
	if f.Method != "" && l.Method != f.Method {
		return false
	}
	return true
}
