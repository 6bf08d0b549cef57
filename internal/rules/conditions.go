package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/awch-D/claude-skill-auditor/internal/skill"
)

// ConditionFunc is a predicate over a skill. params carries the opaque text
// after ":" in the rule's condition string, verbatim.
type ConditionFunc func(s *skill.Skill, params string) (bool, error)

// Registry maps condition names to predicates. Each engine owns its own
// registry, so independently configured engines can coexist in one process.
type Registry struct {
	funcs map[string]ConditionFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]ConditionFunc{}}
}

// Register adds or replaces the predicate bound to name.
func (r *Registry) Register(name string, fn ConditionFunc) {
	r.funcs[name] = fn
}

// Evaluate runs the named predicate. Unknown names and predicate errors are
// logged and yield false: a malfunctioning condition must never abort an
// analysis pass.
func (r *Registry) Evaluate(name string, s *skill.Skill, params string) bool {
	fn, ok := r.funcs[name]
	if !ok {
		slog.Warn("unknown condition", "condition", name)
		return false
	}
	ok, err := fn(s, params)
	if err != nil {
		slog.Warn("condition evaluation failed", "condition", name, "err", err)
		return false
	}
	return ok
}

var validName = regexp.MustCompile(`^[a-z0-9-]+$`)

// registerBuiltins installs the built-in predicates. has_critical_tools
// consults the engine's dangerous-tool taxonomy rather than a private list,
// so loaded rule packs can extend the critical tier.
func (e *Engine) registerBuiltins() {
	reg := e.conditions

	reg.Register("no_allowed_tools", func(s *skill.Skill, _ string) (bool, error) {
		return !s.HasToolRestrictions(), nil
	})

	reg.Register("has_critical_tools", func(s *skill.Skill, _ string) (bool, error) {
		return len(e.criticalToolsOf(s)) > 0, nil
	})

	reg.Register("tool_count", func(s *skill.Skill, params string) (bool, error) {
		if s.ToolCount() < 0 {
			return false, nil
		}
		return compareCount(s.ToolCount(), params)
	})

	reg.Register("has_tool_combination", func(s *skill.Skill, params string) (bool, error) {
		if !s.HasToolRestrictions() {
			return false, nil
		}
		allowed := map[string]bool{}
		for _, t := range s.ToolsList() {
			allowed[strings.ToLower(t)] = true
		}
		for _, want := range strings.Split(params, ",") {
			if !allowed[strings.ToLower(strings.TrimSpace(want))] {
				return false, nil
			}
		}
		return true, nil
	})

	reg.Register("body_length_exceeds", func(s *skill.Skill, params string) (bool, error) {
		n, err := strconv.Atoi(strings.TrimSpace(params))
		if err != nil {
			return false, fmt.Errorf("invalid threshold %q: %w", params, err)
		}
		// Thresholds are character counts, not byte lengths.
		return utf8.RuneCountInString(s.Body) > n, nil
	})

	reg.Register("description_length_exceeds", func(s *skill.Skill, params string) (bool, error) {
		n, err := strconv.Atoi(strings.TrimSpace(params))
		if err != nil {
			return false, fmt.Errorf("invalid threshold %q: %w", params, err)
		}
		return utf8.RuneCountInString(s.Metadata.Description) > n, nil
	})

	reg.Register("description_has_angle_brackets", func(s *skill.Skill, _ string) (bool, error) {
		return strings.ContainsAny(s.Metadata.Description, "<>"), nil
	})

	reg.Register("name_invalid_format", func(s *skill.Skill, _ string) (bool, error) {
		name := s.Metadata.Name
		if name == "" {
			return true, nil
		}
		if !validName.MatchString(name) {
			return true, nil
		}
		if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") || strings.Contains(name, "--") {
			return true, nil
		}
		return false, nil
	})
}

// countOps is checked in order; two-character operators come first so that
// ">= 10" parses as >= rather than > against "= 10".
var countOps = []struct {
	token string
	cmp   func(a, b int) bool
}{
	{">=", func(a, b int) bool { return a >= b }},
	{"<=", func(a, b int) bool { return a <= b }},
	{"==", func(a, b int) bool { return a == b }},
	{">", func(a, b int) bool { return a > b }},
	{"<", func(a, b int) bool { return a < b }},
}

func compareCount(count int, params string) (bool, error) {
	for _, op := range countOps {
		if strings.Contains(params, op.token) {
			raw := strings.TrimSpace(strings.Replace(params, op.token, "", 1))
			threshold, err := strconv.Atoi(raw)
			if err != nil {
				return false, fmt.Errorf("invalid threshold in %q: %w", params, err)
			}
			return op.cmp(count, threshold), nil
		}
	}
	return false, fmt.Errorf("no comparison operator in %q", params)
}
