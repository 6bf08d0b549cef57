package reporting

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

// SARIFReporter emits SARIF 2.1.0 for code-scanning integrations.
type SARIFReporter struct{}

func (SARIFReporter) Format() string { return "sarif" }
func (SARIFReporter) Ext() string    { return "sarif" }

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	ShortDescription     sarifText         `json:"shortDescription"`
	FullDescription      sarifText         `json:"fullDescription"`
	DefaultConfiguration sarifLevel        `json:"defaultConfiguration"`
	Properties           map[string]any    `json:"properties,omitempty"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifLevel struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifText       `json:"message"`
	Locations []sarifLocation `json:"locations"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifFix struct {
	Description sarifText `json:"description"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int           `json:"startLine"`
	StartColumn int           `json:"startColumn"`
	Snippet     sarifText     `json:"snippet"`
}

func sevToLevel(s audit.Severity) string {
	switch s {
	case audit.SevCritical, audit.SevHigh:
		return "error"
	case audit.SevMedium:
		return "warning"
	}
	return "note"
}

func (SARIFReporter) Generate(r *audit.Result) (string, error) {
	rules := make([]sarifRule, 0)
	seen := map[string]bool{}
	for _, f := range r.Findings {
		ruleID := f.RuleID
		if ruleID == "" {
			ruleID = f.ID
		}
		if seen[ruleID] {
			continue
		}
		seen[ruleID] = true
		precision := "medium"
		if f.Confidence >= 0.8 {
			precision = "high"
		}
		rules = append(rules, sarifRule{
			ID:                   ruleID,
			Name:                 f.Title,
			ShortDescription:     sarifText{Text: f.Title},
			FullDescription:      sarifText{Text: f.Description},
			DefaultConfiguration: sarifLevel{Level: sevToLevel(f.Severity)},
			Properties: map[string]any{
				"tags":      []string{"security", string(f.Category)},
				"precision": precision,
			},
		})
	}

	results := make([]sarifResult, 0, len(r.Findings))
	for _, f := range r.Findings {
		ruleID := f.RuleID
		if ruleID == "" {
			ruleID = f.ID
		}
		startLine := f.LineNumber
		if startLine <= 0 {
			startLine = 1
		}
		res := sarifResult{
			RuleID:  ruleID,
			Level:   sevToLevel(f.Severity),
			Message: sarifText{Text: fmt.Sprintf("%s: %s", f.Description, truncate(f.Evidence, 100))},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: r.Skill.SourcePath},
					Region: sarifRegion{
						StartLine:   startLine,
						StartColumn: 1,
						Snippet:     sarifText{Text: f.Evidence},
					},
				},
			}},
		}
		if f.Recommendation != "" {
			res.Fixes = []sarifFix{{Description: sarifText{Text: f.Recommendation}}}
		}
		results = append(results, res)
	}

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    "claude-skill-auditor",
				Version: r.Version,
				Rules:   rules,
			}},
			Results: results,
		}},
	}

	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so the message stays valid UTF-8.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
