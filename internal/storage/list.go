package storage

import (
	"time"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

// ListAudits returns a lightweight page of audits, newest first.
func (db *DB) ListAudits(limit, offset int) ([]AuditRow, error) {
	const q = `
		SELECT a.id, a.created_at, a.skill_name, a.source_path, a.file_hash, a.risk_score, a.blocked,
		       (SELECT COUNT(1) FROM findings f WHERE f.audit_id = a.id) AS findings
		  FROM audits a
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var ar AuditRow
		var created string
		var blocked int
		if err := rows.Scan(&ar.ID, &created, &ar.SkillName, &ar.SourcePath, &ar.FileHash, &ar.RiskScore, &blocked, &ar.Findings); err != nil {
			return nil, err
		}
		ar.Blocked = blocked != 0
		ar.CreatedAt = parseStoredTime(created)
		out = append(out, ar)
	}
	return out, rows.Err()
}

// ListFindings returns findings for an audit at or above a minimum severity,
// most severe first.
func (db *DB) ListFindings(auditID string, minSeverity audit.Severity) ([]audit.Finding, error) {
	const q = `
		SELECT id, rule_id, category, severity, title, evidence, line_number
		  FROM findings
		 WHERE audit_id = ?
		   AND (CASE severity WHEN 'critical' THEN 5 WHEN 'high' THEN 4 WHEN 'medium' THEN 3 WHEN 'low' THEN 2 ELSE 1 END)
		       >= (CASE ? WHEN 'critical' THEN 5 WHEN 'high' THEN 4 WHEN 'medium' THEN 3 WHEN 'low' THEN 2 ELSE 1 END)
		 ORDER BY
		       (CASE severity WHEN 'critical' THEN 5 WHEN 'high' THEN 4 WHEN 'medium' THEN 3 WHEN 'low' THEN 2 ELSE 1 END) DESC,
		       rule_id, id`
	rows, err := db.conn.Query(q, auditID, string(minSeverity))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Finding
	for rows.Next() {
		var f audit.Finding
		var cat, sev string
		if err := rows.Scan(&f.ID, &f.RuleID, &cat, &sev, &f.Title, &f.Evidence, &f.LineNumber); err != nil {
			return nil, err
		}
		f.Category = audit.RiskCategory(cat)
		f.Severity = audit.Severity(sev)
		f.Confidence = 1.0
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListAuditsForHash returns audit rows for one file hash, newest first.
// Used by the diff command to line up audits of the same document.
func (db *DB) ListAuditsForHash(fileHash string, limit int) ([]AuditRow, error) {
	const q = `
		SELECT a.id, a.created_at, a.skill_name, a.source_path, a.file_hash, a.risk_score, a.blocked,
		       (SELECT COUNT(1) FROM findings f WHERE f.audit_id = a.id) AS findings
		  FROM audits a
		 WHERE a.file_hash = ?
		 ORDER BY a.created_at DESC, a.id DESC
		 LIMIT ?`
	rows, err := db.conn.Query(q, fileHash, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var ar AuditRow
		var created string
		var blocked int
		if err := rows.Scan(&ar.ID, &created, &ar.SkillName, &ar.SourcePath, &ar.FileHash, &ar.RiskScore, &blocked, &ar.Findings); err != nil {
			return nil, err
		}
		ar.Blocked = blocked != 0
		ar.CreatedAt = parseStoredTime(created)
		out = append(out, ar)
	}
	return out, rows.Err()
}

func parseStoredTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
