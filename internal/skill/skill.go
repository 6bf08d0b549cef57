package skill

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Source identifies where a skill document came from.
type Source string

const (
	SourceLocalFile Source = "local_file"
	SourceGitHubURL Source = "github_url"
	SourceRegistry  Source = "registry"
)

// Metadata holds the parsed frontmatter fields of a skill document.
// AllowedTools is nil when the skill declares no tool restriction at all;
// a non-nil empty slice means "restricted to nothing".
type Metadata struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	AllowedTools []string       `json:"allowed_tools,omitempty"`
	Raw          map[string]any `json:"-"`
}

// MetadataFromMap builds Metadata from a decoded frontmatter map.
// Both "allowed-tools" and "allowed_tools" spellings are accepted, either as
// a comma-separated string or as a list.
func MetadataFromMap(data map[string]any) Metadata {
	m := Metadata{
		Name:        "unnamed-skill",
		Description: "",
		Raw:         data,
	}
	if data == nil {
		m.Raw = map[string]any{}
		return m
	}
	if v, ok := data["name"].(string); ok && v != "" {
		m.Name = v
	}
	if v, ok := data["description"].(string); ok {
		m.Description = v
	}

	tools := data["allowed-tools"]
	if tools == nil {
		tools = data["allowed_tools"]
	}
	switch tv := tools.(type) {
	case string:
		parts := strings.Split(tv, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		m.AllowedTools = list
	case []any:
		list := make([]string, 0, len(tv))
		for _, t := range tv {
			s := strings.TrimSpace(fmt.Sprint(t))
			if s != "" && t != nil {
				list = append(list, s)
			}
		}
		m.AllowedTools = list
	}
	return m
}

// Skill is the immutable unit under audit: frontmatter metadata plus the
// Markdown body. Derived fields are computed once in New.
type Skill struct {
	Source     Source   `json:"source"`
	SourcePath string   `json:"source_path"`
	Metadata   Metadata `json:"metadata"`
	Body       string   `json:"body"`
	RawContent string   `json:"-"`

	FileHash  string `json:"file_hash"`
	LineCount int    `json:"line_count"`
}

const hashPrefixLen = 16

// New constructs a Skill and computes the derived hash and line count.
func New(source Source, sourcePath string, meta Metadata, body, rawContent string) *Skill {
	sum := sha256.Sum256([]byte(rawContent))
	return &Skill{
		Source:     source,
		SourcePath: sourcePath,
		Metadata:   meta,
		Body:       body,
		RawContent: rawContent,
		FileHash:   hex.EncodeToString(sum[:])[:hashPrefixLen],
		LineCount:  len(splitLines(rawContent)),
	}
}

// HasToolRestrictions reports whether the skill declares an allowed-tools
// list at all (an empty declared list still counts as restricted).
func (s *Skill) HasToolRestrictions() bool {
	return s.Metadata.AllowedTools != nil
}

// ToolCount returns the number of allowed tools, or -1 when unrestricted.
func (s *Skill) ToolCount() int {
	if s.Metadata.AllowedTools == nil {
		return -1
	}
	return len(s.Metadata.AllowedTools)
}

// ToolsList never returns nil.
func (s *Skill) ToolsList() []string {
	if s.Metadata.AllowedTools == nil {
		return []string{}
	}
	return s.Metadata.AllowedTools
}

// LineAt returns the content of the 1-based line number, or "" when out of
// range.
func (s *Skill) LineAt(n int) string {
	lines := splitLines(s.RawContent)
	if n >= 1 && n <= len(lines) {
		return lines[n-1]
	}
	return ""
}

// MetadataText renders the raw frontmatter map as "key: value" lines with
// sorted keys. Pattern rules match against this text; sorting keeps the
// rendering stable so repeated analyses of one document are identical.
func (s *Skill) MetadataText() string {
	if len(s.Metadata.Raw) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s.Metadata.Raw))
	for k := range s.Metadata.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, s.Metadata.Raw[k])
	}
	return b.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
