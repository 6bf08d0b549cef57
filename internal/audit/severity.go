package audit

import (
	"fmt"
	"strings"
)

// Severity classifies how serious a finding is. Values are lowercase on the
// wire to stay compatible with existing report consumers.
type Severity string

const (
	SevCritical Severity = "critical"
	SevHigh     Severity = "high"
	SevMedium   Severity = "medium"
	SevLow      Severity = "low"
	SevInfo     Severity = "info"
)

// Severities lists all levels from most to least severe.
var Severities = []Severity{SevCritical, SevHigh, SevMedium, SevLow, SevInfo}

// Rank returns the ordering of a severity: lower is more severe, CRITICAL=0.
// Unknown severities rank below INFO.
func (s Severity) Rank() int {
	switch s {
	case SevCritical:
		return 0
	case SevHigh:
		return 1
	case SevMedium:
		return 2
	case SevLow:
		return 3
	case SevInfo:
		return 4
	}
	return 5
}

// AtLeast reports whether s is at least as severe as min.
func (s Severity) AtLeast(min Severity) bool { return s.Rank() <= min.Rank() }

// ParseSeverity maps a string to a Severity. Unlike categories, an unknown
// severity is an error: a rule without a valid severity cannot be loaded.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	switch s {
	case SevCritical, SevHigh, SevMedium, SevLow, SevInfo:
		return s, nil
	}
	return "", fmt.Errorf("unknown severity %q", v)
}

// riskWeights drive the saturating 0-100 risk score.
var riskWeights = map[Severity]int{
	SevCritical: 40,
	SevHigh:     25,
	SevMedium:   10,
	SevLow:      3,
	SevInfo:     0,
}

// RiskCategory classifies the kind of risk a finding describes.
type RiskCategory string

const (
	CatPromptInjection    RiskCategory = "prompt_injection"
	CatPermissionAbuse    RiskCategory = "permission_abuse"
	CatDataExfiltration   RiskCategory = "data_exfiltration"
	CatCommandInjection   RiskCategory = "command_injection"
	CatPathTraversal      RiskCategory = "path_traversal"
	CatCredentialExposure RiskCategory = "credential_exposure"
	CatSocialEngineering  RiskCategory = "social_engineering"
	CatUnknown            RiskCategory = "unknown"
)

// Categories lists all risk categories in report order.
var Categories = []RiskCategory{
	CatPromptInjection,
	CatPermissionAbuse,
	CatDataExfiltration,
	CatCommandInjection,
	CatPathTraversal,
	CatCredentialExposure,
	CatSocialEngineering,
	CatUnknown,
}

// ParseCategory maps a string to a RiskCategory. Unrecognized values
// normalize to CatUnknown rather than failing.
func ParseCategory(v string) RiskCategory {
	c := RiskCategory(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CatUnknown
}
