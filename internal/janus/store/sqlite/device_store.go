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

const deviceColumns = `device_id, location, active, registration_mode, firmware_version,
  last_seen_at_ms, created_at_ms, updated_at_ms`

func scanDevice(rs rowScanner) (types.Device, error) {
	var (
		d                  types.Device
		active, regMode    int
		lastSeen           sql.NullInt64
		createdMs, updated int64
	)
	if err := rs.Scan(&d.DeviceID, &d.Location, &active, &regMode, &d.FirmwareVersion,
		&lastSeen, &createdMs, &updated); err != nil {
		return types.Device{}, err
	}
	d.Active = active == 1
	d.RegistrationMode = regMode == 1
	d.LastSeenAt = fromNullMs(lastSeen)
	d.CreatedAt = fromMs(createdMs)
	d.UpdatedAt = fromMs(updated)
	return d, nil
}

func (s *Store) CreateDevice(ctx context.Context, d types.Device) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO devices(`+deviceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, d.DeviceID, d.Location, boolInt(d.Active), boolInt(d.RegistrationMode), d.FirmwareVersion,
			optMs(d.LastSeenAt), toMs(d.CreatedAt), toMs(d.UpdatedAt))
		return wrapErr("CreateDevice", err)
	})
}

func (s *Store) GetDevice(ctx context.Context, deviceID string) (types.Device, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = ?;`, deviceID)
	d, err := scanDevice(row)
	if err != nil {
		return types.Device{}, wrapErr("GetDevice "+deviceID, err)
	}
	return d, nil
}

func (s *Store) ListDevices(ctx context.Context, f store.DeviceFilter) ([]types.Device, error) {
	var (
		where []string
		args  []any
	)
	if f.Active != nil {
		where = append(where, "active = ?")
		args = append(args, boolInt(*f.Active))
	}
	if f.Location != "" {
		where = append(where, "location = ? COLLATE NOCASE")
		args = append(args, f.Location)
	}
	q := `SELECT ` + deviceColumns + ` FROM devices`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY device_id;`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListDevices: %w", err)
	}
	defer rows.Close()

	out := make([]types.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDevices scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDevice(ctx context.Context, d types.Device) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE devices
SET location = ?, active = ?, firmware_version = ?, updated_at_ms = ?
WHERE device_id = ?;
`, d.Location, boolInt(d.Active), d.FirmwareVersion, toMs(d.UpdatedAt), d.DeviceID)
		if err != nil {
			return wrapErr("UpdateDevice", err)
		}
		return requireRow("UpdateDevice "+d.DeviceID, res)
	})
}

func (s *Store) DeleteDevice(ctx context.Context, deviceID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ?;`, deviceID)
		if err != nil {
			return wrapErr("DeleteDevice", err)
		}
		return requireRow("DeleteDevice "+deviceID, res)
	})
}

// MarkSeen refreshes the device snapshot. An empty firmware string keeps
// the stored version.
func (s *Store) MarkSeen(ctx context.Context, deviceID, firmware string, t time.Time) error {
	ms := toMs(t)
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE devices
SET last_seen_at_ms  = ?,
    firmware_version = CASE WHEN ? = '' THEN firmware_version ELSE ? END
WHERE device_id = ?;
`, ms, firmware, firmware, deviceID)
		if err != nil {
			return wrapErr("MarkSeen", err)
		}
		return requireRow("MarkSeen "+deviceID, res)
	})
}

func (s *Store) SetRegistrationMode(ctx context.Context, deviceID string, enabled bool, t time.Time) (bool, error) {
	var changed bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var current int
		if err := tx.QueryRowContext(ctx, `SELECT registration_mode FROM devices WHERE device_id = ?;`, deviceID).
			Scan(&current); err != nil {
			return wrapErr("SetRegistrationMode "+deviceID, err)
		}
		if (current == 1) == enabled {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE devices SET registration_mode = ?, updated_at_ms = ? WHERE device_id = ?;
`, boolInt(enabled), toMs(t), deviceID); err != nil {
			return wrapErr("SetRegistrationMode update", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

func releaseDeviceTx(ctx context.Context, tx *sql.Tx, deviceID string, nowMs int64) error {
	_, err := tx.ExecContext(ctx, `
UPDATE devices SET registration_mode = 0, updated_at_ms = ?
WHERE device_id = ? AND registration_mode = 1;
`, nowMs, deviceID)
	return wrapErr("release device "+deviceID, err)
}
