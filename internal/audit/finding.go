package audit

// Finding is one reported issue from a single analysis pass.
//
// Pattern-derived findings get an ID of the form "<ruleID>-<line>" so that
// repeated matches on different lines stay distinct, while identical-line
// matches within one rule collapse by construction. Condition-derived
// findings use the rule ID directly (one per triggering condition per pass).
type Finding struct {
	ID             string       `json:"id"`
	Category       RiskCategory `json:"category"`
	Severity       Severity     `json:"severity"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Evidence       string       `json:"evidence"`
	LineNumber     int          `json:"line_number,omitempty"`
	Recommendation string       `json:"recommendation,omitempty"`
	RuleID         string       `json:"rule_id,omitempty"`
	Confidence     float64      `json:"confidence"`
	Analyzer       string       `json:"analyzer"`
	IsAIGenerated  bool         `json:"is_ai_generated"`
}
