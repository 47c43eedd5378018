package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/Janus/server/internal/db"
	sqlitestore "github.com/BrandonDHaskell/Janus/server/internal/janus/store/sqlite"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// openTestDB returns an in-memory SQLite connection with the production
// PRAGMAs and schema. Closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Unique name per test; shared cache keeps the database alive while the
	// pool holds its single connection.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn, closed on cleanup.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()
	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

func newTestStore(t *testing.T) (*sqlitestore.Store, *sql.DB) {
	t.Helper()
	conn := openTestDB(t)
	return sqlitestore.New(conn, newTestWriter(t, conn)), conn
}

var testNow = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func seedDevice(t *testing.T, s *sqlitestore.Store, deviceID string, regMode bool) {
	t.Helper()
	err := s.CreateDevice(context.Background(), types.Device{
		DeviceID:         deviceID,
		Location:         "Lobby",
		Active:           true,
		RegistrationMode: regMode,
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
	})
	if err != nil {
		t.Fatalf("seedDevice(%s): %v", deviceID, err)
	}
}

// seedOrgDept creates organization org-1 with department dept-1.
func seedOrgDept(t *testing.T, s *sqlitestore.Store) {
	t.Helper()
	ctx := context.Background()
	err := s.CreateOrganization(ctx, types.Organization{
		ID: "org-1", Name: "Acme", Kind: types.OrganizationCompany, Active: true, CreatedAt: testNow, UpdatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("seedOrgDept: organization: %v", err)
	}
	err = s.CreateDepartment(ctx, types.Department{
		ID: "dept-1", OrganizationID: "org-1", Name: "Ops", Active: true, CreatedAt: testNow, UpdatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("seedOrgDept: department: %v", err)
	}
}

func seedCard(t *testing.T, s *sqlitestore.Store, cardID string, fingerprintID int64) {
	t.Helper()
	err := s.CreateCard(context.Background(), types.Card{
		CardID:         cardID,
		OrganizationID: "org-1",
		DepartmentID:   "dept-1",
		HolderName:     "Holder " + cardID,
		HolderType:     types.HolderEmployee,
		FingerprintID:  fingerprintID,
		Active:         true,
		IssueDate:      testNow,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	})
	if err != nil {
		t.Fatalf("seedCard(%s): %v", cardID, err)
	}
}
