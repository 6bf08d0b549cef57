package rules

import (
	"strings"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
	"github.com/awch-D/claude-skill-auditor/internal/storage"
)

// ApplyWaivers filters out findings matched by an active waiver. A waiver
// matches on rule ID, optionally narrowed to a skill name and an evidence or
// title substring, all case-insensitive. Returns (kept, waivedCount).
// Waivers are a reporting-side filter only; engine state never changes.
func ApplyWaivers(in []audit.Finding, skillName string, waivers []storage.Waiver) ([]audit.Finding, int) {
	if len(waivers) == 0 || len(in) == 0 {
		return in, 0
	}
	var kept []audit.Finding
	waived := 0
nextFinding:
	for _, f := range in {
		for _, w := range waivers {
			if !strings.EqualFold(strings.TrimSpace(f.RuleID), strings.TrimSpace(w.RuleID)) {
				continue
			}
			if w.SkillName != "" && !strings.EqualFold(skillName, w.SkillName) {
				continue
			}
			if w.EvidenceSub != "" {
				sub := strings.ToUpper(w.EvidenceSub)
				if !strings.Contains(strings.ToUpper(f.Evidence), sub) &&
					!strings.Contains(strings.ToUpper(f.Title), sub) {
					continue
				}
			}
			waived++
			continue nextFinding
		}
		kept = append(kept, f)
	}
	return kept, waived
}
