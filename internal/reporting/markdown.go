package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

// MarkdownReporter renders the human-readable review report.
type MarkdownReporter struct{}

func (MarkdownReporter) Format() string { return "markdown" }
func (MarkdownReporter) Ext() string    { return "md" }

var severityIcons = map[audit.Severity]string{
	audit.SevCritical: "🔴",
	audit.SevHigh:     "🟠",
	audit.SevMedium:   "🟡",
	audit.SevLow:      "🟢",
	audit.SevInfo:     "🔵",
}

func (MarkdownReporter) Generate(r *audit.Result) (string, error) {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	w("# Skill Security Review")
	w("")
	w("## Overview")
	w("")
	w("| Property | Value |")
	w("|------|-----|")
	w("| Skill name | %s |", r.Skill.Metadata.Name)
	w("| Source path | %s |", r.Skill.SourcePath)
	w("| File hash | %s |", r.Skill.FileHash)
	w("| Audited at | %s |", r.Timestamp.Format("2006-01-02 15:04:05"))
	w("| Auditor version | %s |", r.Version)
	w("")

	w("## Risk Assessment")
	w("")
	score := r.RiskScore()
	indicator := "🟢"
	if score >= 70 {
		indicator = "🔴"
	} else if score >= 30 {
		indicator = "🟡"
	}
	w("- **Risk score**: %d/100 %s", score, indicator)
	switch {
	case r.HasCritical():
		w("- **Recommended action**: ❌ reject")
	case r.IsBlocked():
		w("- **Recommended action**: ⚠️ requires manual review")
	default:
		w("- **Recommended action**: ✅ acceptable")
	}
	w("")

	w("### Findings by severity")
	w("")
	w("| Severity | Count |")
	w("|------|------|")
	bySev := r.FindingsBySeverity()
	for _, sev := range audit.Severities {
		w("| %s %s | %d |", severityIcons[sev], strings.ToUpper(string(sev)), bySev[sev])
	}
	w("")

	w("## Findings")
	w("")
	if len(r.Findings) == 0 {
		w("✅ no security issues found")
		w("")
	} else {
		sorted := make([]audit.Finding, len(r.Findings))
		copy(sorted, r.Findings)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
		})
		for _, f := range sorted {
			ref := f.RuleID
			if ref == "" {
				ref = f.ID
			}
			w("### %s %s: %s - %s", severityIcons[f.Severity], strings.ToUpper(string(f.Severity)), ref, f.Title)
			w("")
			w("**Category**: %s", categoryTitle(f.Category))
			w("**Analyzer**: %s", f.Analyzer)
			w("")
			w("**Description**:")
			w("%s", f.Description)
			w("")
			w("**Evidence**:")
			w("```")
			w("%s", f.Evidence)
			w("```")
			w("")
			if f.Recommendation != "" {
				w("**Recommended fix**:")
				w("%s", f.Recommendation)
				w("")
			}
			if f.LineNumber > 0 {
				w("**Location**: line %d", f.LineNumber)
				w("")
			}
			w("---")
			w("")
		}
	}

	w("## Tool Permissions")
	w("")
	if r.Skill.HasToolRestrictions() {
		w("- **Tool count**: %d", r.Skill.ToolCount())
		w("- **Allowed tools**: %s", strings.Join(r.Skill.ToolsList(), ", "))
	} else {
		w("- **Tool restrictions**: ⚠️ none declared (skill can use every tool)")
	}
	w("")
	return b.String(), nil
}

func categoryTitle(c audit.RiskCategory) string {
	words := strings.Split(string(c), "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
