package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const orgColumns = `organization_id, name, kind, address, contact_email, contact_phone, active, created_at_ms, updated_at_ms`

func scanOrganization(rs rowScanner) (types.Organization, error) {
	var (
		o                  types.Organization
		kind               string
		active             int
		createdMs, updated int64
	)
	if err := rs.Scan(&o.ID, &o.Name, &kind, &o.Address, &o.ContactEmail, &o.ContactPhone, &active, &createdMs, &updated); err != nil {
		return types.Organization{}, err
	}
	o.Kind = types.OrganizationKind(kind)
	o.Active = active == 1
	o.CreatedAt = fromMs(createdMs)
	o.UpdatedAt = fromMs(updated)
	return o, nil
}

func (s *Store) CreateOrganization(ctx context.Context, o types.Organization) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO organizations(`+orgColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`, o.ID, o.Name, string(o.Kind), o.Address, o.ContactEmail, o.ContactPhone,
			boolInt(o.Active), toMs(o.CreatedAt), toMs(o.UpdatedAt))
		return wrapErr("CreateOrganization", err)
	})
}

func (s *Store) GetOrganization(ctx context.Context, id string) (types.Organization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE organization_id = ?;`, id)
	o, err := scanOrganization(row)
	if err != nil {
		return types.Organization{}, wrapErr("GetOrganization "+id, err)
	}
	return o, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]types.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("ListOrganizations: %w", err)
	}
	defer rows.Close()

	out := make([]types.Organization, 0)
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("ListOrganizations scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOrganization(ctx context.Context, o types.Organization) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE organizations
SET name = ?, kind = ?, address = ?, contact_email = ?, contact_phone = ?,
    active = ?, updated_at_ms = ?
WHERE organization_id = ?;
`, o.Name, string(o.Kind), o.Address, o.ContactEmail, o.ContactPhone,
			boolInt(o.Active), toMs(o.UpdatedAt), o.ID)
		if err != nil {
			return wrapErr("UpdateOrganization", err)
		}
		return requireRow("UpdateOrganization "+o.ID, res)
	})
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM organizations WHERE organization_id = ?;`, id)
		if err != nil {
			return wrapErr("DeleteOrganization", err)
		}
		return requireRow("DeleteOrganization "+id, res)
	})
}

const deptColumns = `department_id, organization_id, name, description, location, active, created_at_ms, updated_at_ms`

func scanDepartment(rs rowScanner) (types.Department, error) {
	var (
		d                  types.Department
		active             int
		createdMs, updated int64
	)
	if err := rs.Scan(&d.ID, &d.OrganizationID, &d.Name, &d.Description, &d.Location, &active, &createdMs, &updated); err != nil {
		return types.Department{}, err
	}
	d.Active = active == 1
	d.CreatedAt = fromMs(createdMs)
	d.UpdatedAt = fromMs(updated)
	return d, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d types.Department) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO departments(`+deptColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, d.ID, d.OrganizationID, d.Name, d.Description, d.Location,
			boolInt(d.Active), toMs(d.CreatedAt), toMs(d.UpdatedAt))
		return wrapErr("CreateDepartment", err)
	})
}

func (s *Store) GetDepartment(ctx context.Context, id string) (types.Department, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deptColumns+` FROM departments WHERE department_id = ?;`, id)
	d, err := scanDepartment(row)
	if err != nil {
		return types.Department{}, wrapErr("GetDepartment "+id, err)
	}
	return d, nil
}

func (s *Store) ListDepartments(ctx context.Context, organizationID string) ([]types.Department, error) {
	q := `SELECT ` + deptColumns + ` FROM departments`
	var args []any
	if organizationID != "" {
		q += ` WHERE organization_id = ?`
		args = append(args, organizationID)
	}
	q += ` ORDER BY name;`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListDepartments: %w", err)
	}
	defer rows.Close()

	out := make([]types.Department, 0)
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDepartments scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDepartment(ctx context.Context, d types.Department) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE departments
SET organization_id = ?, name = ?, description = ?, location = ?, active = ?, updated_at_ms = ?
WHERE department_id = ?;
`, d.OrganizationID, d.Name, d.Description, d.Location, boolInt(d.Active), toMs(d.UpdatedAt), d.ID)
		if err != nil {
			return wrapErr("UpdateDepartment", err)
		}
		return requireRow("UpdateDepartment "+d.ID, res)
	})
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM departments WHERE department_id = ?;`, id)
		if err != nil {
			return wrapErr("DeleteDepartment", err)
		}
		return requireRow("DeleteDepartment "+id, res)
	})
}
