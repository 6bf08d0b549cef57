package rules

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
	"github.com/awch-D/claude-skill-auditor/internal/skill"
)

// analyzerName tags every finding the engine produces.
const analyzerName = "static_rule_engine"

// evidenceMaxLen bounds the evidence snippet stored on a finding.
const evidenceMaxLen = 200

// Engine holds the loaded rule set and the dangerous-tool taxonomy, and
// evaluates every enabled rule against a skill.
//
// Analyze is a pure function of (engine state, skill); it is safe to call
// concurrently for different documents. Configuration mutators take the
// write lock, so config changes and analyses never interleave mid-pass.
type Engine struct {
	mu             sync.RWMutex
	rules          map[string]*Rule
	order          []string // rule IDs in insertion order
	conditions     *Registry
	dangerousTools map[string][]string // severity tier -> tool names
}

// NewEngine returns an engine with the default dangerous-tool taxonomy,
// built-in conditions registered, and no rules.
func NewEngine() *Engine {
	e := &Engine{
		rules:      map[string]*Rule{},
		conditions: NewRegistry(),
		dangerousTools: map[string][]string{
			"critical": {"bash", "shell", "terminal", "execute", "cmd"},
			"high":     {"write", "edit", "delete", "filewrite"},
			"medium":   {"webfetch", "websearch"},
		},
	}
	e.registerBuiltins()
	return e
}

// Conditions exposes the engine's condition registry so callers can register
// additional named predicates.
func (e *Engine) Conditions() *Registry { return e.conditions }

// AddRule compiles and inserts a rule. A rule with an already-loaded ID
// replaces the old one in place, keeping its position in iteration order.
func (e *Engine) AddRule(r *Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r.compilePatterns()
	if _, exists := e.rules[r.ID]; !exists {
		e.order = append(e.order, r.ID)
	}
	e.rules[r.ID] = r
}

// MergeDangerousTools extends the taxonomy additively: new tools append to
// an existing tier, new tiers are created.
func (e *Engine) MergeDangerousTools(taxonomy map[string][]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for tier, tools := range taxonomy {
		e.dangerousTools[tier] = append(e.dangerousTools[tier], tools...)
	}
}

// RuleCount returns the number of loaded rules.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// RuleInfo is a read-only view of a loaded rule for inventories.
type RuleInfo struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Severity audit.Severity     `json:"severity"`
	Category audit.RiskCategory `json:"category"`
	Enabled  bool               `json:"enabled"`
}

// Rules lists the loaded rules in insertion order.
func (e *Engine) Rules() []RuleInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]RuleInfo, 0, len(e.order))
	for _, id := range e.order {
		r := e.rules[id]
		out = append(out, RuleInfo{ID: r.ID, Name: r.Name, Severity: r.Severity, Category: r.Category, Enabled: r.Enabled})
	}
	return out
}

// Analyze evaluates every enabled rule against the skill, in rule insertion
// order. Pattern rules match the metadata text, the body and the description
// independently; condition rules evaluate once. Output is deterministic for
// a given engine state and skill.
func (e *Engine) Analyze(s *skill.Skill) []audit.Finding {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var findings []audit.Finding
	for _, id := range e.order {
		rule := e.rules[id]
		if !rule.Enabled {
			continue
		}

		if len(rule.compiled) > 0 {
			for _, surface := range []string{s.MetadataText(), s.Body, s.Metadata.Description} {
				for _, m := range rule.match(surface) {
					findings = append(findings, e.patternFinding(rule, m))
				}
			}
		}

		if rule.Condition != "" {
			if f, ok := e.evaluateCondition(rule, s); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func (e *Engine) patternFinding(rule *Rule, m Match) audit.Finding {
	return audit.Finding{
		ID:             fmt.Sprintf("%s-%d", rule.ID, m.Line),
		Category:       rule.Category,
		Severity:       rule.Severity,
		Title:          rule.Name,
		Description:    rule.Description,
		Evidence:       truncate(m.Text, evidenceMaxLen),
		LineNumber:     m.Line,
		Recommendation: rule.Recommendation,
		RuleID:         rule.ID,
		Confidence:     1.0,
		Analyzer:       analyzerName,
	}
}

// evaluateCondition runs the rule's named condition and, on true, produces
// exactly one finding with synthesized evidence.
func (e *Engine) evaluateCondition(rule *Rule, s *skill.Skill) (audit.Finding, bool) {
	name, params := rule.Condition, ""
	if i := strings.Index(rule.Condition, ":"); i >= 0 {
		name, params = rule.Condition[:i], rule.Condition[i+1:]
	}
	if !e.conditions.Evaluate(name, s, params) {
		return audit.Finding{}, false
	}
	return audit.Finding{
		ID:             rule.ID,
		Category:       rule.Category,
		Severity:       rule.Severity,
		Title:          rule.Name,
		Description:    rule.Description,
		Evidence:       truncate(e.conditionEvidence(name, s), evidenceMaxLen),
		Recommendation: rule.Recommendation,
		RuleID:         rule.ID,
		Confidence:     1.0,
		Analyzer:       analyzerName,
	}, true
}

// conditionEvidence synthesizes a human-readable evidence line for a
// triggered condition.
func (e *Engine) conditionEvidence(name string, s *skill.Skill) string {
	switch name {
	case "no_allowed_tools":
		return "no allowed-tools restriction defined"
	case "has_critical_tools":
		return "requests critical-tier tools: " + strings.Join(e.criticalToolsOf(s), ", ")
	case "tool_count":
		return fmt.Sprintf("tool count (%d) crosses the configured threshold", s.ToolCount())
	case "has_tool_combination":
		return "requests tool combination: " + strings.Join(s.ToolsList(), ", ")
	}
	return "condition triggered: " + name
}

// criticalToolsOf returns the skill's allowed tools that fall in the
// critical tier, lowercased. Callers must hold at least the read lock.
func (e *Engine) criticalToolsOf(s *skill.Skill) []string {
	critical := map[string]bool{}
	for _, t := range e.dangerousTools["critical"] {
		critical[strings.ToLower(t)] = true
	}
	var out []string
	for _, t := range s.ToolsList() {
		if lt := strings.ToLower(t); critical[lt] {
			out = append(out, lt)
		}
	}
	return out
}

// DisableRule disables the rule; no-op when the ID is not loaded.
func (e *Engine) DisableRule(id string) { e.setEnabled(id, false) }

// EnableRule enables the rule; no-op when the ID is not loaded.
func (e *Engine) EnableRule(id string) { e.setEnabled(id, true) }

func (e *Engine) setEnabled(id string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.rules[id]; ok {
		r.Enabled = enabled
	}
}

// OverrideSeverity replaces the rule's severity for all subsequent analyses;
// no-op when the ID is not loaded.
func (e *Engine) OverrideSeverity(id string, sev audit.Severity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.rules[id]; ok {
		r.Severity = sev
	}
}

// truncate cuts s to at most max bytes, backing off to the previous rune
// boundary so the result is always valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
