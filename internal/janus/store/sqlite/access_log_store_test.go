package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// AppendAccessLog
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessLogStore_Append_ColumnsCorrect(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	reqAt := testNow.Add(-100 * time.Millisecond)
	fp := int64(9)

	l, err := s.AppendAccessLog(ctx, types.AccessLog{
		DeviceID:      "D1",
		CardID:        "C100",
		Timestamp:     testNow,
		Authorized:    false,
		Method:        types.MethodBoth,
		Reason:        types.ReasonBiometricMismatch,
		FingerprintID: &fp,
		Location:      "Lobby",
		RequestedAt:   &reqAt,
	})
	if err != nil {
		t.Fatalf("AppendAccessLog: %v", err)
	}
	if l.ID == 0 {
		t.Error("expected assigned log id")
	}

	var (
		authorized  int
		reason      string
		tsMs        int64
		requestedMs sql.NullInt64
		fpCol       sql.NullInt64
	)
	err = conn.QueryRowContext(ctx, `
SELECT authorized, reason, timestamp_ms, requested_at_ms, fingerprint_id
FROM access_logs WHERE log_id = ?`, l.ID,
	).Scan(&authorized, &reason, &tsMs, &requestedMs, &fpCol)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if authorized != 0 {
		t.Errorf("expected authorized=0, got %d", authorized)
	}
	if reason != "biometric mismatch" {
		t.Errorf("expected reason=biometric mismatch, got %q", reason)
	}
	if tsMs != testNow.UnixMilli() {
		t.Errorf("expected timestamp_ms=%d, got %d", testNow.UnixMilli(), tsMs)
	}
	if !requestedMs.Valid || requestedMs.Int64 != reqAt.UnixMilli() {
		t.Errorf("expected requested_at_ms=%d, got %v", reqAt.UnixMilli(), requestedMs)
	}
	if !fpCol.Valid || fpCol.Int64 != 9 {
		t.Errorf("expected fingerprint_id=9, got %v", fpCol)
	}
}

func TestAccessLogStore_Append_NullOptionalFields(t *testing.T) {
	s, conn := newTestStore(t)
	ctx := context.Background()

	l, err := s.AppendAccessLog(ctx, types.AccessLog{
		DeviceID: "D1", CardID: "C1", Timestamp: testNow, Authorized: true, Method: types.MethodCard,
	})
	if err != nil {
		t.Fatalf("AppendAccessLog: %v", err)
	}

	var requestedMs, fpCol sql.NullInt64
	err = conn.QueryRowContext(ctx,
		`SELECT requested_at_ms, fingerprint_id FROM access_logs WHERE log_id = ?`, l.ID,
	).Scan(&requestedMs, &fpCol)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if requestedMs.Valid {
		t.Error("expected requested_at_ms to be NULL")
	}
	if fpCol.Valid {
		t.Error("expected fingerprint_id to be NULL")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ListAccessLogs
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessLogStore_List_FiltersAndOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i, l := range []types.AccessLog{
		{DeviceID: "D1", CardID: "C1", Authorized: true, Method: types.MethodCard},
		{DeviceID: "D1", CardID: "C2", Authorized: false, Method: types.MethodBoth, Reason: types.ReasonUnknownCard},
		{DeviceID: "D2", CardID: "C1", Authorized: true, Method: types.MethodFingerprint},
	} {
		l.Timestamp = testNow.Add(time.Duration(i) * time.Minute)
		if _, err := s.AppendAccessLog(ctx, l); err != nil {
			t.Fatalf("AppendAccessLog %d: %v", i, err)
		}
	}

	all, err := s.ListAccessLogs(ctx, store.AccessLogFilter{})
	if err != nil {
		t.Fatalf("ListAccessLogs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows (append-only), got %d", len(all))
	}
	if all[0].DeviceID != "D2" {
		t.Errorf("expected newest first, got %+v", all[0])
	}

	denied := false
	got, err := s.ListAccessLogs(ctx, store.AccessLogFilter{Authorized: &denied})
	if err != nil {
		t.Fatalf("ListAccessLogs denied: %v", err)
	}
	if len(got) != 1 || got[0].CardID != "C2" {
		t.Errorf("expected one denied row for C2, got %+v", got)
	}

	from := testNow.Add(30 * time.Second)
	got, err = s.ListAccessLogs(ctx, store.AccessLogFilter{CardID: "C1", From: &from})
	if err != nil {
		t.Fatalf("ListAccessLogs window: %v", err)
	}
	if len(got) != 1 || got[0].DeviceID != "D2" {
		t.Errorf("expected C1 on D2 only, got %+v", got)
	}

	got, err = s.ListAccessLogs(ctx, store.AccessLogFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListAccessLogs limit: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 rows with limit, got %d", len(got))
	}
}
