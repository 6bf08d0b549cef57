package rules

import (
	"log/slog"
	"regexp"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

// Rule is a single declarative check: optional text patterns, an optional
// named condition, or both. A rule with neither is inert but valid.
type Rule struct {
	ID             string
	Name           string
	Severity       audit.Severity
	Category       audit.RiskCategory
	Description    string
	Patterns       []string
	Condition      string // "name" or "name:params"
	Recommendation string
	Enabled        bool
	Examples       []string

	compiled []*regexp.Regexp
}

// compilePatterns compiles the rule's patterns once, case-insensitive and
// multi-line. An invalid pattern is dropped with a warning; the rule keeps
// operating with its remaining valid patterns.
func (r *Rule) compilePatterns() {
	r.compiled = r.compiled[:0]
	for _, p := range r.Patterns {
		re, err := regexp.Compile("(?im)" + p)
		if err != nil {
			slog.Warn("dropping invalid rule pattern", "rule", r.ID, "pattern", p, "err", err)
			continue
		}
		r.compiled = append(r.compiled, re)
	}
}

// Match holds one pattern occurrence within a text surface.
type Match struct {
	Text  string
	Start int
	End   int
	Line  int // 1-based, relative to the surface the match was found in
}

// match runs every compiled pattern over text and returns all occurrences.
func (r *Rule) match(text string) []Match {
	var out []Match
	for _, re := range r.compiled {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			out = append(out, Match{
				Text:  text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
				Line:  lineOf(text, loc[0]),
			})
		}
	}
	return out
}

// lineOf counts newlines before offset, 1-based.
func lineOf(text string, offset int) int {
	line := 1
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
		}
	}
	return line
}
