package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

type diffPayload struct {
	BaseID  string        `json:"base_id"`
	HeadID  string        `json:"head_id"`
	Summary diffSummary   `json:"summary"`
	New     []diffFinding `json:"new"`
	Removed []diffFinding `json:"removed"`
	Changed []diffChanged `json:"changed"`
}

type diffSummary struct {
	NewCount     int  `json:"new"`
	RemovedCount int  `json:"removed"`
	ChangedCount int  `json:"changed"`
	ScoreDelta   int  `json:"risk_score_delta"`
	NowBlocked   bool `json:"now_blocked"`
}

type diffFinding struct {
	ID       string `json:"id"`
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Title    string `json:"title,omitempty"`
	Evidence string `json:"evidence,omitempty"`
	Line     int    `json:"line_number,omitempty"`
}

type diffChanged struct {
	Key     string      `json:"key"`
	Base    diffFinding `json:"base"`
	Head    diffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

// Diff compares two stored reports of the same skill and classifies
// findings as new, removed or changed by their logical identity.
func Diff(base, head *audit.Report) diffPayload {
	bm := map[string]audit.Finding{}
	hm := map[string]audit.Finding{}
	for _, f := range base.Findings {
		bm[keyOf(f)] = f
	}
	for _, f := range head.Findings {
		hm[keyOf(f)] = f
	}

	var added []diffFinding
	var removed []diffFinding
	var changed []diffChanged

	for k, hf := range hm {
		bf, ok := bm[k]
		if !ok {
			added = append(added, asDiff(hf))
			continue
		}
		var fields []string
		if norm(string(bf.Severity)) != norm(string(hf.Severity)) {
			fields = append(fields, "severity")
		}
		if strings.TrimSpace(bf.Evidence) != strings.TrimSpace(hf.Evidence) {
			fields = append(fields, "evidence")
		}
		if bf.LineNumber != hf.LineNumber {
			fields = append(fields, "line_number")
		}
		if len(fields) > 0 {
			changed = append(changed, diffChanged{
				Key:     k,
				Base:    asDiff(bf),
				Head:    asDiff(hf),
				Changed: fields,
			})
		}
	}
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, asDiff(bf))
		}
	}

	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	return diffPayload{
		BaseID: base.AuditID, HeadID: head.AuditID,
		Summary: diffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
			ScoreDelta:   head.Summary.RiskScore - base.Summary.RiskScore,
			NowBlocked:   head.Summary.IsBlocked && !base.Summary.IsBlocked,
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
}

// WriteDiffJSON renders the diff of two audits to outDir.
func WriteDiffJSON(outDir string, base, head *audit.Report) (string, error) {
	path := filepath.Join(outDir, "diff_"+base.AuditID+"__"+head.AuditID+".json")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(Diff(base, head), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

// keyOf identifies a finding across audits. The finding ID already
// encodes rule and line, but the line moves when the body is edited, so
// identity is rule plus evidence.
func keyOf(f audit.Finding) string {
	sb := strings.Builder{}
	sb.WriteString(norm(f.RuleID))
	sb.WriteByte('|')
	sb.WriteString(norm(f.Evidence))
	return sb.String()
}

func asDiff(f audit.Finding) diffFinding {
	return diffFinding{
		ID:       f.ID,
		RuleID:   f.RuleID,
		Severity: string(f.Severity),
		Title:    f.Title,
		Evidence: f.Evidence,
		Line:     f.LineNumber,
	}
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
