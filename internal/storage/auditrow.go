package storage

import "time"

// AuditRow is a lightweight listing row for the audits index.
type AuditRow struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	SkillName  string    `json:"skill_name,omitempty"`
	SourcePath string    `json:"source_path,omitempty"`
	FileHash   string    `json:"file_hash,omitempty"`
	RiskScore  int       `json:"risk_score"`
	Blocked    bool      `json:"blocked"`
	Findings   int       `json:"findings"`
}
