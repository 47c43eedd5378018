package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Fixed ids so repeated dev seeding is idempotent.
const (
	DevOrganizationID = "00000000-0000-4000-8000-000000000001"
	DevDepartmentID   = "00000000-0000-4000-8000-000000000002"
	DevDeviceID       = "reader-001"
)

// SeedDev inserts a starter organization, department and reader so a fresh
// dev database can run an enrollment end to end.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO organizations(organization_id, name, kind, active, created_at_ms, updated_at_ms)
VALUES (?, 'Dev University', 'university', 1, ?, ?);`, DevOrganizationID, now, now); err != nil {
		return fmt.Errorf("seed organizations: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO departments(department_id, organization_id, name, location, active, created_at_ms, updated_at_ms)
VALUES (?, ?, 'Engineering', 'Building A', 1, ?, ?);`, DevDepartmentID, DevOrganizationID, now, now); err != nil {
		return fmt.Errorf("seed departments: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO devices(device_id, location, active, registration_mode, created_at_ms, updated_at_ms)
VALUES (?, 'Main Entrance', 1, 0, ?, ?)
ON CONFLICT(device_id) DO UPDATE SET
  active = 1,
  updated_at_ms = excluded.updated_at_ms;
`, DevDeviceID, now, now); err != nil {
		return fmt.Errorf("seed device %s: %w", DevDeviceID, err)
	}

	return nil
}
