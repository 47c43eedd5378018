package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Per-connection PRAGMAs for a single-process server: WAL for concurrent
// readers, NORMAL sync, and a busy timeout to ride out SQLITE_BUSY.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

type Config struct {
	// DSN is either a filesystem path ("./data/janus.db") or a full
	// "file:" URI. PRAGMAs are appended to either form.
	DSN string
}

// Open connects, pings and migrates the registry database.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// Single connection: every write already funnels through Worker.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func buildDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "./data/janus.db"
	}

	if strings.HasPrefix(raw, "file:") {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + pragmas, nil
	}

	if err := os.MkdirAll(filepath.Dir(raw), 0o755); err != nil {
		return "", fmt.Errorf("mkdir db dir: %w", err)
	}
	return "file:" + raw + "?" + pragmas, nil
}
