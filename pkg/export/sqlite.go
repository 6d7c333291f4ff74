// Package export persists finalized call records to SQLite.
package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bwann/qparse/pkg/modem"
	"github.com/bwann/qparse/pkg/session"
)

// SQLite schema version for migrations.
const schemaVersion = 1

// Repository is a SQLite-backed archive of scan runs and their call records.
// Appending runs from many capture sessions into one database makes
// longer-term line-quality trends queryable.
type Repository struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer is best practice for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &Repository{db: db, path: path}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return r, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) initSchema() error {
	schema := `
-- Meta table for archive metadata
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

-- One row per scan invocation
CREATE TABLE IF NOT EXISTS runs (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	scanned_at         TEXT NOT NULL,
	sources            TEXT NOT NULL,
	connection         TEXT NOT NULL,
	attempts           INTEGER NOT NULL,
	connected          INTEGER NOT NULL,
	download_successes INTEGER NOT NULL,
	download_failures  INTEGER NOT NULL
);

-- One row per finalized call record
CREATE TABLE IF NOT EXISTS calls (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           INTEGER NOT NULL,
	start_qmodem     TEXT,
	start_dial       TEXT,
	connect_time     TEXT,
	start_download   TEXT,
	end_download     TEXT,
	end_call         TEXT,
	exit_qmodem      TEXT,
	aborted_time     TEXT,
	abort_reason     TEXT,
	connected        INTEGER NOT NULL,
	connect_bps      INTEGER,
	reliable         INTEGER NOT NULL,
	ansi             INTEGER NOT NULL,
	download_success INTEGER NOT NULL,
	download_cps     INTEGER,
	test_size        TEXT,
	protocol         TEXT,
	ati6             TEXT,     -- JSON field map
	ati11            TEXT,     -- JSON field map
	FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_calls_run ON calls(run_id);
CREATE INDEX IF NOT EXISTS idx_calls_start ON calls(start_qmodem);
`

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	_, err := r.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		"schema_version", fmt.Sprintf("%d", schemaVersion))
	return err
}

// SaveRun writes the run counters and every record in one transaction.
func (r *Repository) SaveRun(store *session.Store, stats session.RunStats, sources []string, connection string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO runs (
		scanned_at, sources, connection,
		attempts, connected, download_successes, download_failures
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Format(time.RFC3339),
		strings.Join(sources, ","),
		connection,
		stats.Attempts, stats.Connected, stats.DownloadSuccesses, stats.DownloadFailures,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO calls (
		run_id,
		start_qmodem, start_dial, connect_time, start_download, end_download,
		end_call, exit_qmodem, aborted_time, abort_reason,
		connected, connect_bps, reliable, ansi,
		download_success, download_cps,
		test_size, protocol, ati6, ati11
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range store.All() {
		_, err := stmt.Exec(
			runID,
			optTime(rec.StartQmodem), optTime(rec.StartDial), optTime(rec.ConnectTime),
			optTime(rec.StartDownload), optTime(rec.EndDownload),
			optTime(rec.EndCall), optTime(rec.ExitQmodem), optTime(rec.AbortedTime),
			rec.AbortReason,
			int(rec.Connected), optInt(rec.RemoteConnectBPS), rec.RemoteReliable, rec.RemoteANSI,
			int(rec.DownloadSuccess), optInt(rec.DownloadCPS),
			rec.TestSize, rec.Protocol,
			blockJSON(rec.ATI6), blockJSON(rec.ATI11),
		)
		if err != nil {
			return fmt.Errorf("insert call: %w", err)
		}
	}

	return tx.Commit()
}

func optTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

func optInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func blockJSON(b modem.Block) any {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	return string(data)
}
