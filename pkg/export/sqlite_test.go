package export

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwann/qparse/pkg/modem"
	"github.com/bwann/qparse/pkg/session"
)

func testStore() (*session.Store, session.RunStats) {
	store := session.NewStore()
	bps := 26400
	base := time.Date(1995, time.March, 15, 14, 0, 0, 0, time.UTC)

	store.Save(&session.CallRecord{
		StartQmodem:      base,
		ConnectTime:      base.Add(25 * time.Second),
		EndCall:          base.Add(110 * time.Second),
		Connected:        session.OutcomeSuccess,
		RemoteConnectBPS: &bps,
		DownloadSuccess:  session.OutcomeSuccess,
		ATI6: modem.Block{
			"speed": modem.Value{Number: 24000, Numeric: true},
		},
	})
	store.Save(&session.CallRecord{
		StartQmodem: base.Add(10 * time.Minute),
		AbortReason: "NO CARRIER",
	})

	return store, session.RunStats{Attempts: 2, Connected: 1, DownloadSuccesses: 1}
}

func TestRepository_SaveRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")

	repo, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	store, stats := testStore()
	if err := repo.SaveRun(store, stats, []string{"test.cap"}, "modem"); err != nil {
		t.Fatalf("save run: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var runs int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}

	var calls int
	if err := db.QueryRow(`SELECT COUNT(*) FROM calls`).Scan(&calls); err != nil {
		t.Fatalf("count calls: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}

	var attempts, connected int
	if err := db.QueryRow(`SELECT attempts, connected FROM runs`).Scan(&attempts, &connected); err != nil {
		t.Fatalf("read run counters: %v", err)
	}
	if attempts != 2 || connected != 1 {
		t.Errorf("expected counters 2/1, got %d/%d", attempts, connected)
	}

	var bps sql.NullInt64
	if err := db.QueryRow(`SELECT connect_bps FROM calls ORDER BY id LIMIT 1`).Scan(&bps); err != nil {
		t.Fatalf("read call: %v", err)
	}
	if !bps.Valid || bps.Int64 != 26400 {
		t.Errorf("expected connect_bps 26400, got %+v", bps)
	}

	// Absent values round-trip as NULL, never fake zeros
	var missing sql.NullInt64
	row := db.QueryRow(`SELECT connect_bps FROM calls ORDER BY id DESC LIMIT 1`)
	if err := row.Scan(&missing); err != nil {
		t.Fatalf("read call: %v", err)
	}
	if missing.Valid {
		t.Errorf("expected NULL connect_bps for the failed call, got %d", missing.Int64)
	}
}

func TestRepository_AppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")

	for i := 0; i < 2; i++ {
		repo, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		store, stats := testStore()
		if err := repo.SaveRun(store, stats, []string{"test.cap"}, "modem"); err != nil {
			t.Fatalf("save run: %v", err)
		}
		repo.Close()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var runs int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 2 {
		t.Errorf("expected 2 runs after appending, got %d", runs)
	}
}
