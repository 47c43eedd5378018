package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const pendingColumns = `pending_id, card_id, fingerprint_id, device_id, status, failure_reason,
  profile_json, created_at_ms, resolved_at_ms`

func scanPending(rs rowScanner) (types.PendingRegistration, error) {
	var (
		p           types.PendingRegistration
		status      string
		profileJSON string
		createdMs   int64
		resolvedMs  sql.NullInt64
	)
	if err := rs.Scan(&p.ID, &p.CardID, &p.FingerprintID, &p.DeviceID, &status, &p.FailureReason,
		&profileJSON, &createdMs, &resolvedMs); err != nil {
		return types.PendingRegistration{}, err
	}
	if err := json.Unmarshal([]byte(profileJSON), &p.Profile); err != nil {
		return types.PendingRegistration{}, fmt.Errorf("decode profile for %s: %w", p.ID, err)
	}
	p.Status = types.PendingStatus(status)
	p.CreatedAt = fromMs(createdMs)
	p.ResolvedAt = fromNullMs(resolvedMs)
	return p, nil
}

func (s *Store) ReservePending(ctx context.Context, p types.PendingRegistration) (types.PendingRegistration, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Status = types.PendingStatusPending

	profile, err := json.Marshal(p.Profile)
	if err != nil {
		return types.PendingRegistration{}, fmt.Errorf("ReservePending encode profile: %w", err)
	}

	err = s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var next int64
		if err := tx.QueryRowContext(ctx, `
SELECT MAX(
  (SELECT last_value FROM fingerprint_sequence WHERE id = 1),
  COALESCE((SELECT MAX(fingerprint_id) FROM cards), 0)
) + 1;
`).Scan(&next); err != nil {
			return fmt.Errorf("ReservePending allocate: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE fingerprint_sequence SET last_value = ? WHERE id = 1;`, next); err != nil {
			return fmt.Errorf("ReservePending advance sequence: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO pending_registrations(`+pendingColumns+`)
VALUES (?, ?, ?, ?, ?, '', ?, ?, NULL);
`, p.ID, p.CardID, next, p.DeviceID, string(p.Status), string(profile), toMs(p.CreatedAt)); err != nil {
			return wrapErr("ReservePending insert", err)
		}

		p.FingerprintID = next
		return nil
	})
	if err != nil {
		return types.PendingRegistration{}, err
	}
	return p, nil
}

func (s *Store) GetPendingForDevice(ctx context.Context, deviceID string) (types.PendingRegistration, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+pendingColumns+` FROM pending_registrations
WHERE device_id = ? AND status = 'pending';
`, deviceID)
	p, err := scanPending(row)
	if err != nil {
		return types.PendingRegistration{}, wrapErr("GetPendingForDevice "+deviceID, err)
	}
	return p, nil
}

func (s *Store) ListPending(ctx context.Context, f store.PendingFilter) ([]types.PendingRegistration, error) {
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
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := `SELECT ` + pendingColumns + ` FROM pending_registrations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at_ms DESC;`
	return s.queryPending(ctx, "ListPending", q, args...)
}

func (s *Store) ListStalePending(ctx context.Context, cutoff time.Time) ([]types.PendingRegistration, error) {
	return s.queryPending(ctx, "ListStalePending", `
SELECT `+pendingColumns+` FROM pending_registrations
WHERE status = 'pending' AND created_at_ms < ?
ORDER BY created_at_ms;
`, cutoff.UTC().UnixMilli())
}

func (s *Store) queryPending(ctx context.Context, op, q string, args ...any) ([]types.PendingRegistration, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]types.PendingRegistration, 0)
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func loadOpenPendingTx(ctx context.Context, tx *sql.Tx, pendingID string) (types.PendingRegistration, error) {
	row := tx.QueryRowContext(ctx, `
SELECT `+pendingColumns+` FROM pending_registrations
WHERE pending_id = ? AND status = 'pending';
`, pendingID)
	p, err := scanPending(row)
	if err != nil {
		return types.PendingRegistration{}, wrapErr("load pending "+pendingID, err)
	}
	return p, nil
}

func (s *Store) CompleteEnrollment(ctx context.Context, pendingID, templateData string, at time.Time) (types.Card, error) {
	nowMs := toMs(at)
	now := fromMs(nowMs)

	var card types.Card
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := loadOpenPendingTx(ctx, tx, pendingID)
		if err != nil {
			return err
		}

		bio, err := upsertBiometricTx(ctx, tx, p.CardID, templateData, nowMs)
		if err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_id = ?;`, p.CardID)
		existing, err := scanCard(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := checkProfileRefsTx(ctx, tx, p.Profile); err != nil {
				return err
			}
			card = types.Card{
				CardID:         p.CardID,
				OrganizationID: p.Profile.OrganizationID,
				DepartmentID:   p.Profile.DepartmentID,
				HolderName:     p.Profile.HolderName,
				HolderType:     p.Profile.HolderType,
				Email:          p.Profile.Email,
				Phone:          p.Profile.Phone,
				ExpiryDate:     p.Profile.ExpiryDate,
				Active:         true,
				IssueDate:      now,
				CreatedAt:      now,
				UpdatedAt:      now,
				FingerprintID:  p.FingerprintID,
				BiometricID:    bio.ID,
			}
			if err := insertCardTx(ctx, tx, card); err != nil {
				return err
			}
		case err != nil:
			return wrapErr("CompleteEnrollment load card", err)
		default:
			card = existing
			card.FingerprintID = p.FingerprintID
			card.BiometricID = bio.ID
			card.UpdatedAt = now
			if err := updateCardTx(ctx, tx, card); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE pending_registrations SET status = 'completed', resolved_at_ms = ? WHERE pending_id = ?;
`, nowMs, pendingID); err != nil {
			return wrapErr("CompleteEnrollment resolve", err)
		}
		return releaseDeviceTx(ctx, tx, p.DeviceID, nowMs)
	})
	if err != nil {
		return types.Card{}, err
	}
	return card, nil
}

// checkProfileRefsTx confirms the staged department still exists under the
// staged organization. Either may have been deleted since the card read.
func checkProfileRefsTx(ctx context.Context, tx *sql.Tx, prof types.CardProfile) error {
	var orgID string
	err := tx.QueryRowContext(ctx, `
SELECT d.organization_id FROM departments d
JOIN organizations o ON o.organization_id = d.organization_id
WHERE d.department_id = ?;
`, prof.DepartmentID).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("department %s or its organization no longer exists: %w", prof.DepartmentID, store.ErrConflict)
	}
	if err != nil {
		return wrapErr("CompleteEnrollment check profile", err)
	}
	if orgID != prof.OrganizationID {
		return fmt.Errorf("department %s moved to organization %s: %w", prof.DepartmentID, orgID, store.ErrConflict)
	}
	return nil
}

func (s *Store) FailPending(ctx context.Context, pendingID, reason string, at time.Time) error {
	nowMs := toMs(at)
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := loadOpenPendingTx(ctx, tx, pendingID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE pending_registrations
SET status = 'failed', failure_reason = ?, resolved_at_ms = ?
WHERE pending_id = ?;
`, reason, nowMs, pendingID); err != nil {
			return wrapErr("FailPending", err)
		}
		return releaseDeviceTx(ctx, tx, p.DeviceID, nowMs)
	})
}
