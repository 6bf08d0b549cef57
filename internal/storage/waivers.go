package storage

import "time"

// Waiver suppresses findings from one rule, optionally narrowed to a skill
// name and an evidence/title substring. Waivers expire and can be revoked;
// they never reach the rule engine itself.
type Waiver struct {
	ID          int64      `json:"id"`
	RuleID      string     `json:"rule_id"`
	SkillName   string     `json:"skill_name,omitempty"`
	EvidenceSub string     `json:"evidence_sub,omitempty"`
	Reason      string     `json:"reason"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

func (db *DB) CreateWaiver(ruleID, skillName, evidenceSub, reason, createdBy string, expires time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := db.conn.Exec(
		`INSERT INTO waivers(rule_id, skill_name, evidence_sub, reason, expires_at, created_by, created_at)
		 VALUES(?,?,?,?,?,?,?)`,
		ruleID, skillName, evidenceSub, reason, expires.UTC().Format(time.RFC3339Nano), createdBy, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) RevokeWaiver(id int64, by string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := execOne(db.conn, `UPDATE waivers SET revoked_at=? WHERE id=? AND revoked_at IS NULL`, now, id); err != nil {
		return err
	}
	return db.LogActivity(by, "waiver:revoke", "", map[string]any{"id": id})
}

// ListWaivers returns waivers; with activeOnly only unrevoked, unexpired
// ones.
func (db *DB) ListWaivers(activeOnly bool) ([]Waiver, error) {
	q := `SELECT id, rule_id, COALESCE(skill_name,''), COALESCE(evidence_sub,''), reason, expires_at, created_by, created_at, revoked_at
	        FROM waivers`
	args := []any{}
	if activeOnly {
		q += ` WHERE revoked_at IS NULL AND expires_at > ?`
		args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	}
	q += ` ORDER BY id`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Waiver
	for rows.Next() {
		var w Waiver
		var expires, created string
		var revoked *string
		if err := rows.Scan(&w.ID, &w.RuleID, &w.SkillName, &w.EvidenceSub, &w.Reason, &expires, &w.CreatedBy, &created, &revoked); err != nil {
			return nil, err
		}
		w.ExpiresAt = parseStoredTime(expires)
		w.CreatedAt = parseStoredTime(created)
		if revoked != nil {
			t := parseStoredTime(*revoked)
			w.RevokedAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
