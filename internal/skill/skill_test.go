package skill

import (
	"strings"
	"testing"
)

func TestMetadataFromMap_ToolsSpellings(t *testing.T) {
	cases := []struct {
		name string
		data map[string]any
		want []string
	}{
		{"hyphen string", map[string]any{"allowed-tools": "Read, Grep"}, []string{"Read", "Grep"}},
		{"underscore string", map[string]any{"allowed_tools": "Bash"}, []string{"Bash"}},
		{"list", map[string]any{"allowed-tools": []any{"Read", "Write"}}, []string{"Read", "Write"}},
		{"empty string", map[string]any{"allowed-tools": ""}, []string{}},
		{"absent", map[string]any{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := MetadataFromMap(tc.data)
			if tc.want == nil {
				if m.AllowedTools != nil {
					t.Fatalf("expected nil AllowedTools, got %v", m.AllowedTools)
				}
				return
			}
			if m.AllowedTools == nil {
				t.Fatal("expected non-nil AllowedTools")
			}
			if len(m.AllowedTools) != len(tc.want) {
				t.Fatalf("got %v want %v", m.AllowedTools, tc.want)
			}
			for i := range tc.want {
				if m.AllowedTools[i] != tc.want[i] {
					t.Fatalf("got %v want %v", m.AllowedTools, tc.want)
				}
			}
		})
	}
}

func TestMetadataFromMap_Defaults(t *testing.T) {
	m := MetadataFromMap(nil)
	if m.Name != "unnamed-skill" {
		t.Fatalf("default name: got %q", m.Name)
	}
	if m.Raw == nil {
		t.Fatal("Raw must never be nil")
	}
}

func TestNew_HashAndLines(t *testing.T) {
	raw := "---\nname: x\n---\nbody line\n"
	s := New(SourceLocalFile, "x.md", MetadataFromMap(map[string]any{"name": "x"}), "body line", raw)
	if len(s.FileHash) != 16 {
		t.Fatalf("hash prefix length: got %d", len(s.FileHash))
	}
	for _, c := range s.FileHash {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("hash not lowercase hex: %q", s.FileHash)
		}
	}
	if s.LineCount != 4 {
		t.Fatalf("line count: got %d want 4", s.LineCount)
	}
	// same content, same hash
	s2 := New(SourceRegistry, "other.md", MetadataFromMap(nil), "body line", raw)
	if s.FileHash != s2.FileHash {
		t.Fatal("hash must depend only on raw content")
	}
}

func TestLineCount_Boundaries(t *testing.T) {
	cases := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"\n", 1},
		{"   \n", 1},
		{"\n\n", 2},
		{"a", 1},
		{"a\nb\n", 2},
	}
	for _, c := range cases {
		s := New(SourceLocalFile, "x.md", MetadataFromMap(nil), "", c.content)
		if s.LineCount != c.want {
			t.Fatalf("line count of %q: got %d want %d", c.content, s.LineCount, c.want)
		}
	}
}

func TestToolAccessors(t *testing.T) {
	unrestricted := New(SourceLocalFile, "a.md", MetadataFromMap(map[string]any{}), "", "x")
	if unrestricted.HasToolRestrictions() {
		t.Fatal("no declaration should mean unrestricted")
	}
	if got := unrestricted.ToolCount(); got != -1 {
		t.Fatalf("unrestricted ToolCount: got %d want -1", got)
	}
	if unrestricted.ToolsList() == nil {
		t.Fatal("ToolsList must never return nil")
	}

	empty := New(SourceLocalFile, "b.md", MetadataFromMap(map[string]any{"allowed-tools": ""}), "", "y")
	if !empty.HasToolRestrictions() {
		t.Fatal("an empty declared list still counts as restricted")
	}
	if got := empty.ToolCount(); got != 0 {
		t.Fatalf("empty list ToolCount: got %d want 0", got)
	}
}

func TestMetadataText_SortedAndStable(t *testing.T) {
	meta := MetadataFromMap(map[string]any{"zeta": "last", "alpha": 1, "name": "s"})
	s := New(SourceLocalFile, "c.md", meta, "", "z")
	got := s.MetadataText()
	want := "alpha: 1\nname: s\nzeta: last\n"
	if got != want {
		t.Fatalf("metadata text:\ngot  %q\nwant %q", got, want)
	}
	if s.MetadataText() != got {
		t.Fatal("rendering must be stable across calls")
	}
}

func TestLineAt(t *testing.T) {
	s := New(SourceLocalFile, "d.md", MetadataFromMap(nil), "", "one\ntwo\nthree")
	if got := s.LineAt(2); got != "two" {
		t.Fatalf("LineAt(2): got %q", got)
	}
	if got := s.LineAt(0); got != "" {
		t.Fatalf("LineAt(0): got %q", got)
	}
	if got := s.LineAt(4); got != "" {
		t.Fatalf("LineAt(4): got %q", got)
	}
}
