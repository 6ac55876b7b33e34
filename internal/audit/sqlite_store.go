// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// SqliteRecorder implements Recorder using SQLite.
type SqliteRecorder struct {
	DB *sql.DB
}

// NewSqliteRecorder opens (or creates) the audit database at dbPath.
func NewSqliteRecorder(dbPath string) (*SqliteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}

	r := &SqliteRecorder{DB: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit store: migration failed: %w", err)
	}
	return r, nil
}

func (r *SqliteRecorder) migrate() error {
	var currentVersion int
	if err := r.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TEXT NOT NULL,
		username TEXT NOT NULL,
		message TEXT NOT NULL,
		verdict TEXT NOT NULL,
		words TEXT,
		request_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_username ON decisions(username);
	CREATE INDEX IF NOT EXISTS idx_decisions_verdict ON decisions(verdict);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record inserts the decision and mirrors it to the structured log.
func (r *SqliteRecorder) Record(ctx context.Context, d Decision) error {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	logDecision(ctx, d)

	query := `INSERT INTO decisions (ts, username, message, verdict, words, request_id) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, query,
		d.Timestamp.Format(time.RFC3339), d.Username, d.Message, d.Verdict,
		strings.Join(d.Words, ","), d.RequestID,
	)
	return err
}

// CountByVerdict returns decision counts per verdict, for status reporting.
func (r *SqliteRecorder) CountByVerdict(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT verdict, COUNT(*) FROM decisions GROUP BY verdict`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var verdict string
		var n int
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, err
		}
		counts[verdict] = n
	}
	return counts, rows.Err()
}

func (r *SqliteRecorder) Close() error { return r.DB.Close() }
