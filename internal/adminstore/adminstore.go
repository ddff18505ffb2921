// Package adminstore is the sqlite-backed persistence layer for settings
// history, sanity-audit logs, peer bans, the tick ledger, and the
// celestial snapshot. Uses the pure-Go modernc.org/sqlite driver so the
// server binary stays cgo-free.
package adminstore

import (
	"database/sql"
	"os"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open creates the database directory if needed and applies the schema
// under WAL journal mode.
func Open(path string) (*Store, error) {
	if dir := dirOf(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

const schema = `
CREATE TABLE IF NOT EXISTS settings_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	applied_at_ms INTEGER,
	settings_json TEXT
);
CREATE TABLE IF NOT EXISTS sanity_audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	peer_id TEXT,
	check_id INTEGER,
	kind INTEGER,
	issued_at_ms INTEGER,
	resolved_at_ms INTEGER,
	passed BOOLEAN
);
CREATE INDEX IF NOT EXISTS idx_audit_peer ON sanity_audit_log(peer_id);
CREATE TABLE IF NOT EXISTS peer_bans (
	peer_id TEXT PRIMARY KEY,
	reason TEXT,
	banned_at_ms INTEGER
);
CREATE TABLE IF NOT EXISTS tick_ledger (
	tick INTEGER PRIMARY KEY,
	at_ms INTEGER,
	frames_processed INTEGER,
	mutations_applied INTEGER,
	snapshots_sent INTEGER,
	peers_timed_out INTEGER,
	overran_budget BOOLEAN
);
CREATE TABLE IF NOT EXISTS celestial_snapshot (
	id INTEGER PRIMARY KEY CHECK (id = 0),
	snapshot_blob BLOB,
	snapshot_hash TEXT,
	saved_at_ms INTEGER
);
`

func (s *Store) createSchema() error {
	_, err := s.db.Exec(schema)
	return err
}
