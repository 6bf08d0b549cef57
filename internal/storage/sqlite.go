package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures all tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS audits (
  id          TEXT PRIMARY KEY,
  created_at  TEXT NOT NULL,    -- RFC3339
  skill_name  TEXT,
  source_path TEXT,
  file_hash   TEXT,
  risk_score  INTEGER NOT NULL,
  blocked     INTEGER NOT NULL,
  report_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
  id          TEXT,
  audit_id    TEXT NOT NULL,
  rule_id     TEXT,
  category    TEXT,
  severity    TEXT,
  title       TEXT,
  evidence    TEXT,
  line_number INTEGER,
  PRIMARY KEY (id, audit_id),
  FOREIGN KEY(audit_id) REFERENCES audits(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_audit ON findings(audit_id);
CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id);
CREATE INDEX IF NOT EXISTS idx_audits_hash ON audits(file_hash);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS activity (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
);

CREATE TABLE IF NOT EXISTS waivers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rule_id      TEXT NOT NULL,
  skill_name   TEXT,             -- optional exact match; NULL/'' = any skill
  evidence_sub TEXT,             -- optional substring to match evidence/title
  reason       TEXT NOT NULL,
  expires_at   TEXT NOT NULL,    -- RFC3339Nano
  created_by   TEXT NOT NULL,
  created_at   TEXT NOT NULL,
  revoked_at   TEXT              -- NULL = active
);
`)
	return err
}

// SaveAudit upserts an audit report and (re)writes its findings.
func (db *DB) SaveAudit(r *audit.Result) error {
	report := r.ToReport()
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	ts := r.Timestamp.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	blocked := 0
	if r.IsBlocked() {
		blocked = 1
	}
	if _, err := tx.Exec(
		`INSERT INTO audits (id, created_at, skill_name, source_path, file_hash, risk_score, blocked, report_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET created_at=excluded.created_at, skill_name=excluded.skill_name,
             source_path=excluded.source_path, file_hash=excluded.file_hash, risk_score=excluded.risk_score,
             blocked=excluded.blocked, report_json=excluded.report_json`,
		r.AuditID, ts, report.Skill.Name, report.Skill.SourcePath, report.Skill.FileHash,
		report.Summary.RiskScore, blocked, string(b),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM findings WHERE audit_id = ?`, r.AuditID); err != nil {
		return err
	}
	if len(r.Findings) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO findings
			(id, audit_id, rule_id, category, severity, title, evidence, line_number)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id, audit_id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range r.Findings {
			if _, err := stmt.Exec(
				f.ID,
				r.AuditID,
				f.RuleID,
				string(f.Category),
				string(f.Severity),
				f.Title,
				f.Evidence,
				f.LineNumber,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadAudit returns the full stored report for an audit id.
func (db *DB) LoadAudit(id string) (audit.Report, error) {
	var s string
	row := db.conn.QueryRow(`SELECT report_json FROM audits WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		return audit.Report{}, err
	}
	var report audit.Report
	if err := json.Unmarshal([]byte(s), &report); err != nil {
		return audit.Report{}, err
	}
	return report, nil
}

// LoadLatestAudit returns the most recently created report.
func (db *DB) LoadLatestAudit() (audit.Report, error) {
	var s string
	row := db.conn.QueryRow(`SELECT report_json FROM audits ORDER BY created_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&s); err != nil {
		return audit.Report{}, err
	}
	var report audit.Report
	if err := json.Unmarshal([]byte(s), &report); err != nil {
		return audit.Report{}, err
	}
	return report, nil
}

// HasAudit reports whether an audit id exists.
func (db *DB) HasAudit(id string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM audits WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
