package reporting

import (
	"encoding/json"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

// JSONReporter emits the stable report document as indented JSON.
type JSONReporter struct{}

func (JSONReporter) Format() string { return "json" }
func (JSONReporter) Ext() string    { return "json" }

func (JSONReporter) Generate(r *audit.Result) (string, error) {
	b, err := json.MarshalIndent(r.ToReport(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
