package adminstore

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"lukechampine.com/blake3"
)

// RecordSettingsChange appends a settings snapshot to the history table,
// called by the admin settings endpoint after a full settings update
// commits.
func (s *Store) RecordSettingsChange(appliedAtMs int64, settings any) error {
	blob, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO settings_history (applied_at_ms, settings_json) VALUES (?, ?)`,
		appliedAtMs, string(blob),
	)
	return err
}

// RecordAuditIssued logs a newly-issued sanity challenge.
func (s *Store) RecordAuditIssued(peerID string, checkID uint32, kind byte, issuedAtMs int64) error {
	_, err := s.db.Exec(
		`INSERT INTO sanity_audit_log (peer_id, check_id, kind, issued_at_ms) VALUES (?, ?, ?, ?)`,
		peerID, checkID, kind, issuedAtMs,
	)
	return err
}

// RecordAuditResolved updates the most recent unresolved row for
// (peerID, checkID) with its outcome.
func (s *Store) RecordAuditResolved(peerID string, checkID uint32, resolvedAtMs int64, passed bool) error {
	_, err := s.db.Exec(
		`UPDATE sanity_audit_log SET resolved_at_ms = ?, passed = ?
		 WHERE id = (
		   SELECT id FROM sanity_audit_log
		   WHERE peer_id = ? AND check_id = ? AND resolved_at_ms IS NULL
		   ORDER BY id DESC LIMIT 1
		 )`,
		resolvedAtMs, passed, peerID, checkID,
	)
	return err
}

// BanPeer records a disconnect-for-cause.
func (s *Store) BanPeer(peerID, reason string, bannedAtMs int64) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO peer_bans (peer_id, reason, banned_at_ms) VALUES (?, ?, ?)`,
		peerID, reason, bannedAtMs,
	)
	return err
}

func (s *Store) IsBanned(peerID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM peer_bans WHERE peer_id = ?`, peerID).Scan(&count)
	return count > 0, err
}

// RecordTick appends one row to the tick ledger exposed to admin.
func (s *Store) RecordTick(tick uint64, atMs int64, framesProcessed, mutationsApplied, snapshotsSent, peersTimedOut int, overran bool) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO tick_ledger
		 (tick, at_ms, frames_processed, mutations_applied, snapshots_sent, peers_timed_out, overran_budget)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tick, atMs, framesProcessed, mutationsApplied, snapshotsSent, peersTimedOut, overran,
	)
	return err
}

// SaveCelestialSnapshot persists the JSON-encoded celestial.Snapshot
// blob alongside its blake3 checksum so a truncated or corrupted write
// is detected on load rather than silently restored.
func (s *Store) SaveCelestialSnapshot(blob []byte, savedAtMs int64) error {
	sum := blake3.Sum256(blob)
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO celestial_snapshot (id, snapshot_blob, snapshot_hash, saved_at_ms) VALUES (0, ?, ?, ?)`,
		blob, hex.EncodeToString(sum[:]), savedAtMs,
	)
	return err
}

// LoadCelestialSnapshot returns (nil, false, nil) when no snapshot has
// ever been saved, and rejects a blob whose stored hash no longer
// matches (truncated write, disk corruption).
func (s *Store) LoadCelestialSnapshot() ([]byte, bool, error) {
	var blob []byte
	var storedHash string
	err := s.db.QueryRow(`SELECT snapshot_blob, snapshot_hash FROM celestial_snapshot WHERE id = 0`).Scan(&blob, &storedHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	sum := blake3.Sum256(blob)
	if hex.EncodeToString(sum[:]) != storedHash {
		return nil, false, fmt.Errorf("adminstore: celestial snapshot checksum mismatch")
	}
	return blob, true, nil
}
