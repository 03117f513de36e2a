package domain

// DomainType is one of the fixed CalAIM care-assessment domains. Six are
// populated by the mapping engine; the seventh slot of the assessment model
// is reserved and never emitted here.
type DomainType string

const (
	DomainPresentingProblem       DomainType = "PRESENTING_PROBLEM"
	DomainBehavioralHealthHistory DomainType = "BEHAVIORAL_HEALTH_HISTORY"
	DomainRiskAssessment          DomainType = "RISK_ASSESSMENT"
	DomainSocialDeterminants      DomainType = "SOCIAL_DETERMINANTS"
	DomainTrauma                  DomainType = "TRAUMA"
	DomainStrengths               DomainType = "STRENGTHS"
)

// Severity grades the presenting problem.
type Severity string

const (
	SeverityMild     Severity = "MILD"
	SeverityModerate Severity = "MODERATE"
	SeveritySevere   Severity = "SEVERE"
)

// DomainSuggestion is a structured, confidence-scored proposal for one
// assessment domain. Produced only by the mapping engine and never mutated
// afterward; Entities keeps the triggering subset for auditability.
type DomainSuggestion struct {
	DomainType DomainType        `json:"domainType"`
	Content    map[string]any    `json:"content"`
	Confidence float64           `json:"confidence"`
	Sources    []string          `json:"sources,omitempty"`
	Entities   []ExtractedEntity `json:"entities,omitempty"`
}
