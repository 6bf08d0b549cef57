package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/awch-D/claude-skill-auditor/internal/skill"
)

// AuditorVersion is stamped into every result and report.
const AuditorVersion = "1.0.0"

// Result aggregates one skill and the findings from one analysis pass.
// It is a pure reduction over the findings list; re-deriving it from the
// same list always yields the same counts and score.
type Result struct {
	Skill    *skill.Skill
	Findings []Finding

	AuditID   string
	Timestamp time.Time
	Version   string
}

// NewResult builds a Result with a fresh audit ID and timestamp.
func NewResult(s *skill.Skill, findings []Finding) *Result {
	return &Result{
		Skill:     s,
		Findings:  findings,
		AuditID:   uuid.NewString()[:8],
		Timestamp: time.Now().UTC(),
		Version:   AuditorVersion,
	}
}

// TotalFindings returns the finding count.
func (r *Result) TotalFindings() int { return len(r.Findings) }

// RiskScore sums per-severity weights over all findings, saturating at 100.
func (r *Result) RiskScore() int {
	score := 0
	for _, f := range r.Findings {
		score += riskWeights[f.Severity]
	}
	if score > 100 {
		score = 100
	}
	return score
}

// IsBlocked reports whether any finding is CRITICAL or HIGH.
func (r *Result) IsBlocked() bool {
	for _, f := range r.Findings {
		if f.Severity == SevCritical || f.Severity == SevHigh {
			return true
		}
	}
	return false
}

// HasCritical reports whether any finding is CRITICAL.
func (r *Result) HasCritical() bool {
	for _, f := range r.Findings {
		if f.Severity == SevCritical {
			return true
		}
	}
	return false
}

// FindingsBySeverity tallies findings per severity. Every severity appears,
// zero counts included.
func (r *Result) FindingsBySeverity() map[Severity]int {
	out := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		out[s] = 0
	}
	for _, f := range r.Findings {
		out[f.Severity]++
	}
	return out
}

// FindingsByCategory tallies findings per category. Every category appears,
// zero counts included.
func (r *Result) FindingsByCategory() map[RiskCategory]int {
	out := make(map[RiskCategory]int, len(Categories))
	for _, c := range Categories {
		out[c] = 0
	}
	for _, f := range r.Findings {
		out[f.Category]++
	}
	return out
}

// WithSeverity returns the findings at exactly the given severity.
func (r *Result) WithSeverity(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// WithCategory returns the findings in exactly the given category.
func (r *Result) WithCategory(c RiskCategory) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

// FilterByMinSeverity keeps findings at or above the given severity. The CLI
// exit-code policy uses the same rank order.
func (r *Result) FilterByMinSeverity(min Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity.AtLeast(min) {
			out = append(out, f)
		}
	}
	return out
}

// CountAtOrAbove counts findings at or above the given severity.
func (r *Result) CountAtOrAbove(min Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity.AtLeast(min) {
			n++
		}
	}
	return n
}

// Report is the stable serialized form of a Result, shared by the JSON
// reporter, storage and the API.
type Report struct {
	AuditID        string        `json:"audit_id"`
	AuditTimestamp string        `json:"audit_timestamp"`
	AuditorVersion string        `json:"auditor_version"`
	Skill          ReportSkill   `json:"skill"`
	Summary        ReportSummary `json:"summary"`
	Findings       []Finding     `json:"findings"`
}

type ReportSkill struct {
	Name                string   `json:"name"`
	Source              string   `json:"source"`
	SourcePath          string   `json:"source_path"`
	FileHash            string   `json:"file_hash"`
	LineCount           int      `json:"line_count"`
	HasToolRestrictions bool     `json:"has_tool_restrictions"`
	ToolCount           int      `json:"tool_count"`
	Tools               []string `json:"tools"`
}

type ReportSummary struct {
	TotalFindings int            `json:"total_findings"`
	RiskScore     int            `json:"risk_score"`
	IsBlocked     bool           `json:"is_blocked"`
	BySeverity    map[string]int `json:"by_severity"`
	ByCategory    map[string]int `json:"by_category"`
}

// ToReport converts the result into its serialized form.
func (r *Result) ToReport() Report {
	bySev := make(map[string]int, len(Severities))
	for s, n := range r.FindingsBySeverity() {
		bySev[string(s)] = n
	}
	byCat := make(map[string]int, len(Categories))
	for c, n := range r.FindingsByCategory() {
		byCat[string(c)] = n
	}
	findings := r.Findings
	if findings == nil {
		findings = []Finding{}
	}
	return Report{
		AuditID:        r.AuditID,
		AuditTimestamp: r.Timestamp.Format(time.RFC3339),
		AuditorVersion: r.Version,
		Skill: ReportSkill{
			Name:                r.Skill.Metadata.Name,
			Source:              string(r.Skill.Source),
			SourcePath:          r.Skill.SourcePath,
			FileHash:            r.Skill.FileHash,
			LineCount:           r.Skill.LineCount,
			HasToolRestrictions: r.Skill.HasToolRestrictions(),
			ToolCount:           r.Skill.ToolCount(),
			Tools:               r.Skill.ToolsList(),
		},
		Summary: ReportSummary{
			TotalFindings: r.TotalFindings(),
			RiskScore:     r.RiskScore(),
			IsBlocked:     r.IsBlocked(),
			BySeverity:    bySev,
			ByCategory:    byCat,
		},
		Findings: findings,
	}
}
