package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

func TestLoadBuiltin(t *testing.T) {
	e := NewEngine()
	n, err := LoadBuiltin(e)
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	if n == 0 || n != e.RuleCount() {
		t.Fatalf("loaded %d rules, engine holds %d", n, e.RuleCount())
	}

	byID := map[string]RuleInfo{}
	for _, info := range e.Rules() {
		byID[info.ID] = info
	}
	for _, want := range []string{"PI-001", "PA-001", "PA-002", "CI-001", "DE-001", "CE-001", "PT-001", "SE-001", "FMT-001"} {
		if _, ok := byID[want]; !ok {
			t.Errorf("builtin rule %s missing", want)
		}
	}
	if got := byID["PI-001"].Severity; got != audit.SevCritical {
		t.Errorf("PI-001 severity: got %s", got)
	}
	if got := byID["PA-001"].Severity; got != audit.SevHigh {
		t.Errorf("PA-001 severity: got %s", got)
	}
	for _, info := range e.Rules() {
		if !info.Enabled {
			t.Errorf("builtin rule %s should default enabled", info.ID)
		}
	}
}

func TestLoadFile_SkipsBadRules(t *testing.T) {
	pack := `
rule_set:
  id: custom
  name: Custom pack
rules:
  - id: OK-001
    name: Fine rule
    severity: medium
    category: unknown
    patterns: ['fine']
  - id: ""
    name: No ID
    severity: low
  - id: BAD-SEV
    name: Bad severity
    severity: fatal
  - id: BAD-CAT
    name: Unknown category degrades
    severity: low
    category: made_up
    patterns: ['x']
`
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewEngine()
	n, err := LoadFile(e, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d rules, want 2 (skip missing-id and bad-severity)", n)
	}
	for _, info := range e.Rules() {
		if info.ID == "BAD-CAT" && info.Category != audit.CatUnknown {
			t.Fatalf("unknown category should degrade to unknown, got %s", info.Category)
		}
	}
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("rules: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewEngine()
	if _, err := LoadFile(e, path); err == nil {
		t.Fatal("malformed pack must fail the file")
	}
	if e.RuleCount() != 0 {
		t.Fatal("failed pack must load nothing")
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	packA := "rules:\n  - {id: A-001, name: a, severity: low, patterns: ['a']}\n"
	packB := "rules:\n  - {id: B-001, name: b, severity: low, patterns: ['b']}\n"
	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(packB), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.yml"), []byte(packA), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewEngine()
	n, err := LoadDirectory(e, dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d, want 2", n)
	}
	// lexical file order drives insertion order
	infos := e.Rules()
	if infos[0].ID != "A-001" || infos[1].ID != "B-001" {
		t.Fatalf("order: %s then %s", infos[0].ID, infos[1].ID)
	}
}

func TestLoadDirectory_Missing(t *testing.T) {
	e := NewEngine()
	n, err := LoadDirectory(e, filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir must not error: %v", err)
	}
	if n != 0 {
		t.Fatalf("loaded %d from missing dir", n)
	}
}

func TestLoadPack_MergesDangerousTools(t *testing.T) {
	pack := `
dangerous_tools:
  critical:
    - superexec
rules:
  - id: X-001
    name: x
    severity: critical
    condition: has_critical_tools
`
	dir := t.TempDir()
	path := filepath.Join(dir, "x.yaml")
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewEngine()
	if _, err := LoadFile(e, path); err != nil {
		t.Fatal(err)
	}
	if !evalCondition(t, e, "has_critical_tools", skillWithTools("SuperExec")) {
		t.Fatal("pack-declared critical tool must count")
	}
}
