package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// AuditArchive is an append-only sqlite record of applied effects, kept
// next to the save directory. The core never reads it during a turn; it
// exists for post-game inspection and replay debugging.
type AuditArchive struct {
	db *sql.DB
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS effect_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	round       INTEGER NOT NULL,
	actor       TEXT,
	effect_type TEXT NOT NULL,
	target      TEXT,
	ok          INTEGER NOT NULL,
	status      TEXT,
	summary     TEXT,
	seed        INTEGER,
	rolled      TEXT,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_effect_log_round ON effect_log(round);
`

// OpenAudit opens (or creates) the archive at path.
func OpenAudit(path string) (*AuditArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit archive: %w", err)
	}
	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing audit schema: %w", err)
	}
	return &AuditArchive{db: db}, nil
}

// Close releases the database handle.
func (a *AuditArchive) Close() error {
	return a.db.Close()
}

// Append records a batch of log entries in one transaction.
func (a *AuditArchive) Append(entries []world.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO effect_log
		(round, actor, effect_type, target, ok, status, summary, seed, rolled, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("audit append: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		rolled, _ := json.Marshal(e.Rolled)
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := stmt.Exec(e.Round, e.Actor, e.EffectType, e.Target,
			boolToInt(e.OK), e.Status, e.Summary, e.Seed, string(rolled),
			ts.Format(time.RFC3339Nano)); err != nil {
			tx.Rollback()
			return fmt.Errorf("audit append: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	logging.Persist("audit: appended %d effect entries", len(entries))
	return nil
}

// ByRound returns the archived entries for one round in insertion order.
func (a *AuditArchive) ByRound(round int) ([]world.LogEntry, error) {
	rows, err := a.db.Query(`SELECT round, actor, effect_type, target, ok,
		status, summary, seed, rolled, recorded_at
		FROM effect_log WHERE round = ? ORDER BY id`, round)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()

	var out []world.LogEntry
	for rows.Next() {
		var e world.LogEntry
		var okInt int
		var rolled, recordedAt string
		if err := rows.Scan(&e.Round, &e.Actor, &e.EffectType, &e.Target,
			&okInt, &e.Status, &e.Summary, &e.Seed, &rolled, &recordedAt); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		e.OK = okInt != 0
		if rolled != "" && rolled != "null" {
			json.Unmarshal([]byte(rolled), &e.Rolled)
		}
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			e.Timestamp = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Rounds lists the distinct rounds present in the archive.
func (a *AuditArchive) Rounds() ([]int, error) {
	rows, err := a.db.Query(`SELECT DISTINCT round FROM effect_log ORDER BY round`)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
