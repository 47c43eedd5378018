package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

const cardColumns = `card_id, organization_id, department_id, holder_name, holder_type,
  fingerprint_id, biometric_id, email, phone, active, issue_date_ms, expiry_date_ms,
  last_access_at_ms, created_at_ms, updated_at_ms`

// getCardsChunk keeps IN (...) lists well under SQLite's variable limit.
const getCardsChunk = 500

func scanCard(rs rowScanner) (types.Card, error) {
	var (
		c                       types.Card
		holderType              string
		biometricID             sql.NullString
		active                  int
		issueMs, createdMs, upd int64
		expiryMs, lastAccessMs  sql.NullInt64
	)
	if err := rs.Scan(&c.CardID, &c.OrganizationID, &c.DepartmentID, &c.HolderName, &holderType,
		&c.FingerprintID, &biometricID, &c.Email, &c.Phone, &active, &issueMs, &expiryMs,
		&lastAccessMs, &createdMs, &upd); err != nil {
		return types.Card{}, err
	}
	c.HolderType = types.HolderType(holderType)
	c.BiometricID = biometricID.String
	c.Active = active == 1
	c.IssueDate = fromMs(issueMs)
	c.ExpiryDate = fromNullMs(expiryMs)
	c.LastAccessAt = fromNullMs(lastAccessMs)
	c.CreatedAt = fromMs(createdMs)
	c.UpdatedAt = fromMs(upd)
	return c, nil
}

func insertCardTx(ctx context.Context, tx *sql.Tx, c types.Card) error {
	var biometricID any
	if c.BiometricID != "" {
		biometricID = c.BiometricID
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO cards(`+cardColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, c.CardID, c.OrganizationID, c.DepartmentID, c.HolderName, string(c.HolderType),
		c.FingerprintID, biometricID, c.Email, c.Phone, boolInt(c.Active), toMs(c.IssueDate),
		optMs(c.ExpiryDate), optMs(c.LastAccessAt), toMs(c.CreatedAt), toMs(c.UpdatedAt))
	return wrapErr("insert card "+c.CardID, err)
}

func updateCardTx(ctx context.Context, tx *sql.Tx, c types.Card) error {
	var biometricID any
	if c.BiometricID != "" {
		biometricID = c.BiometricID
	}
	res, err := tx.ExecContext(ctx, `
UPDATE cards
SET organization_id = ?, department_id = ?, holder_name = ?, holder_type = ?,
    fingerprint_id = ?, biometric_id = ?, email = ?, phone = ?, active = ?,
    issue_date_ms = ?, expiry_date_ms = ?, updated_at_ms = ?
WHERE card_id = ?;
`, c.OrganizationID, c.DepartmentID, c.HolderName, string(c.HolderType),
		c.FingerprintID, biometricID, c.Email, c.Phone, boolInt(c.Active),
		toMs(c.IssueDate), optMs(c.ExpiryDate), toMs(c.UpdatedAt), c.CardID)
	if err != nil {
		return wrapErr("update card "+c.CardID, err)
	}
	return requireRow("update card "+c.CardID, res)
}

func (s *Store) CreateCard(ctx context.Context, c types.Card) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return insertCardTx(ctx, tx, c)
	})
}

func (s *Store) GetCard(ctx context.Context, cardID string) (types.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_id = ?;`, cardID)
	c, err := scanCard(row)
	if err != nil {
		return types.Card{}, wrapErr("GetCard "+cardID, err)
	}
	return c, nil
}

func (s *Store) GetCardByFingerprint(ctx context.Context, fingerprintID int64) (types.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE fingerprint_id = ?;`, fingerprintID)
	c, err := scanCard(row)
	if err != nil {
		return types.Card{}, wrapErr(fmt.Sprintf("GetCardByFingerprint %d", fingerprintID), err)
	}
	return c, nil
}

func (s *Store) GetCards(ctx context.Context, cardIDs []string) (map[string]types.Card, error) {
	out := make(map[string]types.Card, len(cardIDs))
	for start := 0; start < len(cardIDs); start += getCardsChunk {
		end := min(start+getCardsChunk, len(cardIDs))
		chunk := cardIDs[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		q := `SELECT ` + cardColumns + ` FROM cards WHERE card_id IN (` + placeholders(len(chunk)) + `);`

		if err := s.collectCards(ctx, q, args, func(c types.Card) { out[c.CardID] = c }); err != nil {
			return nil, fmt.Errorf("GetCards: %w", err)
		}
	}
	return out, nil
}

func (s *Store) ListCards(ctx context.Context, f store.CardFilter) ([]types.Card, error) {
	var (
		where []string
		args  []any
	)
	if f.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, f.OrganizationID)
	}
	if len(f.DepartmentIDs) > 0 {
		where = append(where, "department_id IN ("+placeholders(len(f.DepartmentIDs))+")")
		for _, d := range f.DepartmentIDs {
			args = append(args, d)
		}
	}
	if f.HolderType != "" {
		where = append(where, "holder_type = ?")
		args = append(args, string(f.HolderType))
	}
	if f.Active != nil {
		where = append(where, "active = ?")
		args = append(args, boolInt(*f.Active))
	}

	q := `SELECT ` + cardColumns + ` FROM cards`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY holder_name, card_id;`

	out := make([]types.Card, 0)
	if err := s.collectCards(ctx, q, args, func(c types.Card) { out = append(out, c) }); err != nil {
		return nil, fmt.Errorf("ListCards: %w", err)
	}
	return out, nil
}

func (s *Store) collectCards(ctx context.Context, q string, args []any, fn func(types.Card)) error {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return err
		}
		fn(c)
	}
	return rows.Err()
}

func (s *Store) UpdateCard(ctx context.Context, c types.Card) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return updateCardTx(ctx, tx, c)
	})
}

func (s *Store) TouchCardAccess(ctx context.Context, cardID string, t time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE cards SET last_access_at_ms = ? WHERE card_id = ?;`, toMs(t), cardID)
		if err != nil {
			return wrapErr("TouchCardAccess", err)
		}
		return requireRow("TouchCardAccess "+cardID, res)
	})
}

func (s *Store) DeleteCard(ctx context.Context, cardID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE card_id = ?;`, cardID)
		if err != nil {
			return wrapErr("DeleteCard", err)
		}
		return requireRow("DeleteCard "+cardID, res)
	})
}

// upsertBiometricTx creates or replaces the template row for cardID, keeping
// its id stable across updates.
func upsertBiometricTx(ctx context.Context, tx *sql.Tx, cardID, template string, nowMs int64) (types.BiometricData, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO biometric_data(biometric_id, card_id, template_data, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(card_id) DO UPDATE SET
  template_data = excluded.template_data,
  updated_at_ms = excluded.updated_at_ms;
`, uuid.NewString(), cardID, template, nowMs, nowMs); err != nil {
		return types.BiometricData{}, wrapErr("upsert biometric "+cardID, err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+bioColumns+` FROM biometric_data WHERE card_id = ?;`, cardID)
	bio, err := scanBiometric(row)
	if err != nil {
		return types.BiometricData{}, wrapErr("reload biometric "+cardID, err)
	}
	return bio, nil
}

const bioColumns = `biometric_id, card_id, template_data, created_at_ms, updated_at_ms`

func scanBiometric(rs rowScanner) (types.BiometricData, error) {
	var (
		b                  types.BiometricData
		createdMs, updated int64
	)
	if err := rs.Scan(&b.ID, &b.CardID, &b.TemplateData, &createdMs, &updated); err != nil {
		return types.BiometricData{}, err
	}
	b.CreatedAt = fromMs(createdMs)
	b.UpdatedAt = fromMs(updated)
	return b, nil
}

func (s *Store) UpsertBiometric(ctx context.Context, d types.BiometricData) (types.BiometricData, error) {
	nowMs := toMs(d.UpdatedAt)
	var out types.BiometricData
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE card_id = ?;`, d.CardID).Scan(&exists); err != nil {
			return wrapErr("UpsertBiometric card "+d.CardID, err)
		}

		bio, err := upsertBiometricTx(ctx, tx, d.CardID, d.TemplateData, nowMs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET biometric_id = ?, updated_at_ms = ? WHERE card_id = ?;`,
			bio.ID, nowMs, d.CardID); err != nil {
			return wrapErr("UpsertBiometric link card", err)
		}
		out = bio
		return nil
	})
	return out, err
}

func (s *Store) GetBiometric(ctx context.Context, cardID string) (types.BiometricData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bioColumns+` FROM biometric_data WHERE card_id = ?;`, cardID)
	b, err := scanBiometric(row)
	if err != nil {
		return types.BiometricData{}, wrapErr("GetBiometric "+cardID, err)
	}
	return b, nil
}

func (s *Store) DeleteBiometric(ctx context.Context, cardID string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM biometric_data WHERE card_id = ?;`, cardID)
		if err != nil {
			return wrapErr("DeleteBiometric", err)
		}
		if err := requireRow("DeleteBiometric "+cardID, res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE cards SET biometric_id = NULL WHERE card_id = ?;`, cardID); err != nil {
			return wrapErr("DeleteBiometric unlink card", err)
		}
		return nil
	})
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
