package reporter

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mysteriumnetwork/hostwall/record"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
    ip TEXT NOT NULL,
    name TEXT NOT NULL,
    source TEXT NOT NULL,
    first_seen INTEGER NOT NULL,
    last_seen INTEGER NOT NULL,
    PRIMARY KEY (ip, name, source)
);
`

const upsertRecord = `
INSERT INTO records (ip, name, source, first_seen, last_seen)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(ip, name, source) DO UPDATE SET
    last_seen=excluded.last_seen;
`

// SQLiteReporter keeps every record ever found in a SQLite database, along
// with when it was first and last seen.
type SQLiteReporter struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteReporter(path string) (*SQLiteReporter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database %s: %w", path, err)
	}
	if _, err := db.Exec(createRecordsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create records table: %w", err)
	}

	return &SQLiteReporter{
		db:  db,
		now: time.Now,
	}, nil
}

func (r *SQLiteReporter) Report(ctx context.Context, records []record.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := r.now().Unix()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.IP, rec.Name, rec.Source, now, now); err != nil {
			return fmt.Errorf("unable to store %s/%s: %w", rec.IP, rec.Name, err)
		}
	}

	return tx.Commit()
}

// Seen returns the first and last time a record was reported.
func (r *SQLiteReporter) Seen(ctx context.Context, rec record.Record) (first, last time.Time, err error) {
	var f, l int64
	err = r.db.QueryRowContext(ctx,
		"SELECT first_seen, last_seen FROM records WHERE ip = ? AND name = ? AND source = ?",
		rec.IP, rec.Name, rec.Source).Scan(&f, &l)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return time.Unix(f, 0), time.Unix(l, 0), nil
}

func (r *SQLiteReporter) Close() error {
	return r.db.Close()
}
