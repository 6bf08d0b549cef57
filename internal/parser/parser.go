package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/awch-D/claude-skill-auditor/internal/skill"
)

// ParseError is the per-document fatal error surfaced to the caller. It
// never affects loaded rule state or other documents in a batch.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFile reads and parses a local skill file.
func ParseFile(path string) (*skill.Skill, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "file does not exist", Err: err}
	}
	if info.IsDir() {
		return nil, &ParseError{Path: path, Reason: "path is not a file"}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "cannot read file", Err: err}
	}
	return ParseContent(string(raw), skill.SourceLocalFile, path)
}

// ParseContent parses skill content already held in memory.
func ParseContent(content string, source skill.Source, sourcePath string) (*skill.Skill, error) {
	front, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, &ParseError{Path: sourcePath, Reason: err.Error(), Err: err}
	}
	meta := skill.MetadataFromMap(front)
	return skill.New(source, sourcePath, meta, body, content), nil
}

// splitFrontmatter separates the YAML frontmatter block from the Markdown
// body. Content without a leading "---" is treated as all body; a fence with
// no closing "---" likewise. Invalid YAML inside a complete fence is a parse
// error.
func splitFrontmatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(strings.TrimSpace(content), "---") {
		return map[string]any{}, content, nil
	}

	lines := strings.Split(content, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return map[string]any{}, content, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return map[string]any{}, content, nil
	}

	frontText := strings.Join(lines[1:end], "\n")
	body := strings.TrimSpace(strings.Join(lines[end+1:], "\n"))

	var front map[string]any
	if err := yaml.Unmarshal([]byte(frontText), &front); err != nil {
		return nil, "", fmt.Errorf("invalid YAML frontmatter: %w", err)
	}
	if front == nil {
		front = map[string]any{}
	}
	return front, body, nil
}

var nameFormat = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validate checks a parsed skill against the authoring conventions and
// returns advisory warnings. These are not findings; the rule engine covers
// the security-relevant cases.
func Validate(s *skill.Skill) []string {
	var warnings []string

	switch {
	case s.Metadata.Name == "":
		warnings = append(warnings, "missing 'name' field")
	case len(s.Metadata.Name) > 64:
		warnings = append(warnings, "'name' exceeds the 64 character limit")
	case !nameFormat.MatchString(s.Metadata.Name):
		warnings = append(warnings, "'name' should contain only lowercase letters, digits and hyphens")
	}

	if s.Metadata.Description == "" {
		warnings = append(warnings, "missing 'description' field")
	} else if len(s.Metadata.Description) > 1024 {
		warnings = append(warnings, "'description' exceeds the 1024 character limit")
	}

	if n := len(strings.Split(s.Body, "\n")); n > 500 {
		warnings = append(warnings, fmt.Sprintf("body line count (%d) exceeds the recommended 500", n))
	}
	return warnings
}
