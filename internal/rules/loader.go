package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

//go:embed builtin/*.yaml
var builtinPacks embed.FS

type packFile struct {
	RuleSet        map[string]any      `yaml:"rule_set"`
	DangerousTools map[string][]string `yaml:"dangerous_tools"`
	Rules          []packRule          `yaml:"rules"`
}

type packRule struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Severity       string   `yaml:"severity"`
	Category       string   `yaml:"category"`
	Description    string   `yaml:"description"`
	Patterns       []string `yaml:"patterns"`
	Condition      string   `yaml:"condition"`
	Recommendation string   `yaml:"recommendation"`
	Enabled        *bool    `yaml:"enabled"`
	Examples       []string `yaml:"examples"`
}

// LoadBuiltin loads the embedded builtin rule packs into the engine and
// returns the number of rules loaded.
func LoadBuiltin(e *Engine) (int, error) {
	entries, err := fs.ReadDir(builtinPacks, "builtin")
	if err != nil {
		return 0, fmt.Errorf("read builtin packs: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		b, err := fs.ReadFile(builtinPacks, "builtin/"+name)
		if err != nil {
			return total, fmt.Errorf("read builtin pack %s: %w", name, err)
		}
		n, err := loadPack(e, b, "builtin/"+name)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// LoadFile loads one YAML rule pack from disk.
func LoadFile(e *Engine, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rule pack: %w", err)
	}
	return loadPack(e, b, path)
}

// LoadDirectory loads every *.yaml / *.yml pack in the directory, lexical
// order. A missing directory is not an error.
func LoadDirectory(e *Engine, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read rules dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(ent.Name())); ext == ".yaml" || ext == ".yml" {
			names = append(names, ent.Name())
		}
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		n, err := LoadFile(e, filepath.Join(dir, name))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// loadPack decodes one pack. A malformed document fails the whole file; a
// single bad rule (missing fields, invalid severity) is skipped with a
// warning and the rest of the pack still loads. Unknown categories degrade
// to "unknown".
func loadPack(e *Engine, data []byte, origin string) (int, error) {
	var pack packFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return 0, fmt.Errorf("parse rule pack %s: %w", origin, err)
	}

	if len(pack.DangerousTools) > 0 {
		e.MergeDangerousTools(pack.DangerousTools)
	}

	n := 0
	for _, pr := range pack.Rules {
		if pr.ID == "" || pr.Name == "" || pr.Severity == "" {
			slog.Warn("skipping rule with missing required fields", "pack", origin, "rule", pr.ID)
			continue
		}
		sev, err := audit.ParseSeverity(pr.Severity)
		if err != nil {
			slog.Warn("skipping rule with invalid severity", "pack", origin, "rule", pr.ID, "err", err)
			continue
		}
		enabled := true
		if pr.Enabled != nil {
			enabled = *pr.Enabled
		}
		e.AddRule(&Rule{
			ID:             pr.ID,
			Name:           pr.Name,
			Severity:       sev,
			Category:       audit.ParseCategory(pr.Category),
			Description:    pr.Description,
			Patterns:       pr.Patterns,
			Condition:      pr.Condition,
			Recommendation: pr.Recommendation,
			Enabled:        enabled,
			Examples:       pr.Examples,
		})
		n++
	}
	return n, nil
}
