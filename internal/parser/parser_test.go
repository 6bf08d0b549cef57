package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awch-D/claude-skill-auditor/internal/skill"
)

const sampleSkill = `---
name: report-helper
description: Formats weekly reports
allowed-tools: Read, Grep
---

# Report helper

Collect the data and format it.
`

func TestParseContent_Frontmatter(t *testing.T) {
	s, err := ParseContent(sampleSkill, skill.SourceLocalFile, "report.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Metadata.Name != "report-helper" {
		t.Fatalf("name: got %q", s.Metadata.Name)
	}
	if s.Metadata.Description != "Formats weekly reports" {
		t.Fatalf("description: got %q", s.Metadata.Description)
	}
	if got := s.ToolCount(); got != 2 {
		t.Fatalf("tool count: got %d want 2", got)
	}
	if !strings.HasPrefix(s.Body, "# Report helper") {
		t.Fatalf("body should start at the heading, got %q", s.Body)
	}
	if strings.Contains(s.Body, "---") {
		t.Fatal("fence must not leak into the body")
	}
}

func TestParseContent_NoFrontmatter(t *testing.T) {
	content := "# Just a document\n\nNo metadata here.\n"
	s, err := ParseContent(content, skill.SourceLocalFile, "plain.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Body != content {
		t.Fatal("content without a fence is all body")
	}
	if s.Metadata.Name != "unnamed-skill" {
		t.Fatalf("name default: got %q", s.Metadata.Name)
	}
	if s.HasToolRestrictions() {
		t.Fatal("no frontmatter means no restrictions")
	}
}

func TestParseContent_UnclosedFence(t *testing.T) {
	content := "---\nname: broken\nno closing fence\n"
	s, err := ParseContent(content, skill.SourceLocalFile, "broken.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Body != content {
		t.Fatal("an unclosed fence is treated as all body")
	}
}

func TestParseContent_InvalidYAML(t *testing.T) {
	content := "---\nname: [unclosed\n---\nbody\n"
	_, err := ParseContent(content, skill.SourceLocalFile, "bad.md")
	if err == nil {
		t.Fatal("expected a parse error for invalid YAML in a complete fence")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Path != "bad.md" {
		t.Fatalf("error path: got %q", pe.Path)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.md")
	if err := os.WriteFile(path, []byte(sampleSkill), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if s.Source != skill.SourceLocalFile {
		t.Fatalf("source: got %q", s.Source)
	}
	if s.SourcePath != path {
		t.Fatalf("source path: got %q", s.SourcePath)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.md")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := ParseFile(dir); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestValidate(t *testing.T) {
	ok, err := ParseContent(sampleSkill, skill.SourceLocalFile, "ok.md")
	if err != nil {
		t.Fatal(err)
	}
	if warns := Validate(ok); len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}

	bad, err := ParseContent("---\nname: Bad Name!\n---\nbody\n", skill.SourceLocalFile, "bad.md")
	if err != nil {
		t.Fatal(err)
	}
	warns := Validate(bad)
	var sawName, sawDesc bool
	for _, w := range warns {
		if strings.Contains(w, "'name'") {
			sawName = true
		}
		if strings.Contains(w, "'description'") {
			sawDesc = true
		}
	}
	if !sawName || !sawDesc {
		t.Fatalf("expected name and description warnings, got %v", warns)
	}
}
