package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

// Reporter renders one audit result into a textual report. Renderers read
// the result and never mutate it.
type Reporter interface {
	Format() string
	Ext() string
	Generate(r *audit.Result) (string, error)
}

// ForFormat returns the reporter for a format name.
func ForFormat(name string) (Reporter, error) {
	switch name {
	case "json":
		return JSONReporter{}, nil
	case "markdown", "md":
		return MarkdownReporter{}, nil
	case "sarif":
		return SARIFReporter{}, nil
	}
	return nil, fmt.Errorf("unsupported report format %q", name)
}

// WriteReport renders the result into outDir as <base>.<ext> and returns
// the written path.
func WriteReport(rep Reporter, r *audit.Result, outDir, base string) (string, error) {
	content, err := rep.Generate(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, base+"."+rep.Ext())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
