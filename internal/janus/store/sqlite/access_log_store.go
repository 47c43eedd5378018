package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const logColumns = `log_id, device_id, card_id, timestamp_ms, authorized, verification_method,
  reason, fingerprint_id, location, requested_at_ms`

func scanAccessLog(rs rowScanner) (types.AccessLog, error) {
	var (
		l             types.AccessLog
		tsMs          int64
		authorized    int
		method        string
		fingerprintID sql.NullInt64
		requestedMs   sql.NullInt64
	)
	if err := rs.Scan(&l.ID, &l.DeviceID, &l.CardID, &tsMs, &authorized, &method,
		&l.Reason, &fingerprintID, &l.Location, &requestedMs); err != nil {
		return types.AccessLog{}, err
	}
	l.Timestamp = fromMs(tsMs)
	l.Authorized = authorized == 1
	l.Method = types.VerificationMethod(method)
	if fingerprintID.Valid {
		v := fingerprintID.Int64
		l.FingerprintID = &v
	}
	l.RequestedAt = fromNullMs(requestedMs)
	return l, nil
}

func (s *Store) AppendAccessLog(ctx context.Context, l types.AccessLog) (types.AccessLog, error) {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	// Millisecond storage precision; keep the returned row identical to
	// what a later read yields.
	l.Timestamp = fromMs(toMs(l.Timestamp))

	var fingerprintID any
	if l.FingerprintID != nil {
		fingerprintID = *l.FingerprintID
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(
  device_id, card_id, timestamp_ms, authorized, verification_method,
  reason, fingerprint_id, location, requested_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`, l.DeviceID, l.CardID, toMs(l.Timestamp), boolInt(l.Authorized), string(l.Method),
			l.Reason, fingerprintID, l.Location, optMs(l.RequestedAt))
		if err != nil {
			return wrapErr("AppendAccessLog insert", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("AppendAccessLog id: %w", err)
		}
		l.ID = id
		return nil
	})
	if err != nil {
		return types.AccessLog{}, err
	}
	return l, nil
}

func (s *Store) ListAccessLogs(ctx context.Context, f store.AccessLogFilter) ([]types.AccessLog, error) {
	var (
		where []string
		args  []any
	)
	if f.DeviceID != "" {
		where = append(where, "device_id = ?")
		args = append(args, f.DeviceID)
	}
	if f.CardID != "" {
		where = append(where, "card_id = ?")
		args = append(args, f.CardID)
	}
	if f.From != nil {
		where = append(where, "timestamp_ms >= ?")
		args = append(args, f.From.UTC().UnixMilli())
	}
	if f.To != nil {
		where = append(where, "timestamp_ms <= ?")
		args = append(args, f.To.UTC().UnixMilli())
	}
	if f.Authorized != nil {
		where = append(where, "authorized = ?")
		args = append(args, boolInt(*f.Authorized))
	}
	if f.Method != "" {
		where = append(where, "verification_method = ?")
		args = append(args, string(f.Method))
	}

	q := `SELECT ` + logColumns + ` FROM access_logs`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY timestamp_ms DESC, log_id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q+";", args...)
	if err != nil {
		return nil, fmt.Errorf("ListAccessLogs: %w", err)
	}
	defer rows.Close()

	out := make([]types.AccessLog, 0)
	for rows.Next() {
		l, err := scanAccessLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAccessLogs scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
