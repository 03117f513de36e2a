// Package mapping converts a flat set of typed clinical entities into ordered,
// confidence-weighted CalAIM assessment-domain suggestions. Everything here is
// a pure function over immutable inputs; no I/O, no locks.
package mapping

import (
	"strings"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

// MapToDomains builds domain suggestions from recognized entities. The output
// order is fixed and caller-observable (display priority): presenting problem,
// behavioral health history, risk assessment, social determinants, trauma,
// strengths. Each domain appears only when at least one triggering entity type
// is present; when none trigger, a single low-information presenting-problem
// fallback is emitted so the result is never empty.
func MapToDomains(entities []domain.ExtractedEntity) []domain.DomainSuggestion {
	byType := groupByType(entities)

	var domains []domain.DomainSuggestion

	diagnoses := byType[domain.EntityDiagnosis]
	symptoms := byType[domain.EntitySymptom]
	if len(diagnoses) > 0 || len(symptoms) > 0 {
		domains = append(domains, presentingProblem(entities, diagnoses, symptoms))
	}

	if medications := byType[domain.EntityMedication]; len(medications) > 0 {
		domains = append(domains, behavioralHealthHistory(medications))
	}

	if risks := byType[domain.EntityRiskBehavior]; len(risks) > 0 {
		domains = append(domains, riskAssessment(risks))
	}

	if social := byType[domain.EntitySocialContext]; len(social) > 0 {
		domains = append(domains, socialDeterminants(social))
	}

	if trauma := byType[domain.EntityTraumaEvent]; len(trauma) > 0 {
		domains = append(domains, traumaDomain(trauma))
	}

	if strengths := byType[domain.EntityStrength]; len(strengths) > 0 {
		domains = append(domains, strengthsDomain(strengths))
	}

	if len(domains) == 0 {
		domains = append(domains, fallbackSuggestion())
	}
	return domains
}

func groupByType(entities []domain.ExtractedEntity) map[domain.EntityType][]domain.ExtractedEntity {
	byType := make(map[domain.EntityType][]domain.ExtractedEntity)
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e)
	}
	return byType
}

func presentingProblem(all, diagnoses, symptoms []domain.ExtractedEntity) domain.DomainSuggestion {
	triggering := make([]domain.ExtractedEntity, 0, len(diagnoses)+len(symptoms))
	triggering = append(triggering, diagnoses...)
	triggering = append(triggering, symptoms...)

	return domain.DomainSuggestion{
		DomainType: domain.DomainPresentingProblem,
		Content: map[string]any{
			"description": describePresentation(diagnoses, symptoms),
			"severity":    string(DetermineSeverity(all)),
			"duration":    "Unknown",
			"impact":      "Impacts daily functioning",
		},
		Confidence: AggregateWithCountBoost(triggering, DefaultWeights),
		Entities:   triggering,
	}
}

func describePresentation(diagnoses, symptoms []domain.ExtractedEntity) string {
	var b strings.Builder
	b.WriteString("Patient presents with ")

	switch {
	case len(diagnoses) > 0:
		b.WriteString(joinTexts(diagnoses))
		if len(symptoms) > 0 {
			b.WriteString(", with symptoms including ")
			b.WriteString(joinTexts(symptoms))
		}
	case len(symptoms) > 0:
		b.WriteString("symptoms including ")
		b.WriteString(joinTexts(symptoms))
	default:
		b.WriteString("unspecified concerns")
	}

	b.WriteString(".")
	return b.String()
}

func joinTexts(entities []domain.ExtractedEntity) string {
	texts := make([]string, 0, len(entities))
	for _, e := range entities {
		texts = append(texts, e.Text)
	}
	return strings.Join(texts, ", ")
}

func behavioralHealthHistory(medications []domain.ExtractedEntity) domain.DomainSuggestion {
	meds := make([]string, 0, len(medications))
	for _, m := range medications {
		meds = append(meds, m.Text)
	}
	return domain.DomainSuggestion{
		DomainType: domain.DomainBehavioralHealthHistory,
		Content: map[string]any{
			"previousTreatment": "Unknown",
			"medications":       meds,
			"hospitalizations":  "None documented",
		},
		Confidence: AggregateWithCountBoost(medications, DefaultWeights),
		Entities:   medications,
	}
}

func riskAssessment(risks []domain.ExtractedEntity) domain.DomainSuggestion {
	return domain.DomainSuggestion{
		DomainType: domain.DomainRiskAssessment,
		Content: map[string]any{
			"suicideRisk":     presentIf(risks, "suicid"),
			"homicideRisk":    "Not documented",
			"selfHarmHistory": presentIf(risks, "harm"),
			"substanceUse":    presentIf(risks, "substance"),
		},
		Confidence: AggregateWithCountBoost(risks, DefaultWeights),
		Entities:   risks,
	}
}

func presentIf(entities []domain.ExtractedEntity, needle string) string {
	if anyTextContains(entities, needle) {
		return "Present"
	}
	return "Not documented"
}

func anyTextContains(entities []domain.ExtractedEntity, needle string) bool {
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.Text), needle) {
			return true
		}
	}
	return false
}

func socialDeterminants(social []domain.ExtractedEntity) domain.DomainSuggestion {
	housing := "Unknown"
	if anyTextContains(social, "housing") {
		housing = "Unstable"
	}
	return domain.DomainSuggestion{
		DomainType: domain.DomainSocialDeterminants,
		Content: map[string]any{
			"housing":        housing,
			"employment":     "Unknown",
			"education":      "Unknown",
			"transportation": "Unknown",
			"socialSupport":  "Unknown",
		},
		Confidence: AggregateWithCountBoost(social, DefaultWeights),
		Entities:   social,
	}
}

func traumaDomain(trauma []domain.ExtractedEntity) domain.DomainSuggestion {
	// Presence-only signal; trauma sub-classification is a clinician's call.
	return domain.DomainSuggestion{
		DomainType: domain.DomainTrauma,
		Content: map[string]any{
			"traumaHistory": "Present",
			"traumaType":    "Unspecified",
			"traumaImpact":  "Impacts current functioning",
		},
		Confidence: AggregateWithCountBoost(trauma, DefaultWeights),
		Entities:   trauma,
	}
}

func strengthsDomain(strengths []domain.ExtractedEntity) domain.DomainSuggestion {
	personal := make([]string, 0, len(strengths))
	for _, s := range strengths {
		personal = append(personal, s.Text)
	}
	return domain.DomainSuggestion{
		DomainType: domain.DomainStrengths,
		Content: map[string]any{
			"personalStrengths": personal,
			"supportSystems":    "Unknown",
			"coping":            "Unknown",
		},
		Confidence: AggregateWithCountBoost(strengths, DefaultWeights),
		Entities:   strengths,
	}
}

func fallbackSuggestion() domain.DomainSuggestion {
	return domain.DomainSuggestion{
		DomainType: domain.DomainPresentingProblem,
		Content: map[string]any{
			"description": "Insufficient information to determine presenting problem",
			"severity":    "Unknown",
			"duration":    "Unknown",
			"impact":      "Unknown",
		},
		Confidence: 0.5,
		Entities:   []domain.ExtractedEntity{},
	}
}

// DetermineSeverity grades the presenting problem over the full entity set,
// not just diagnoses and symptoms: corroborating high-confidence entities and
// risk behaviors escalate the grade.
func DetermineSeverity(entities []domain.ExtractedEntity) domain.Severity {
	highConfidence := 0
	hasSevereDiagnosis := false
	hasRiskBehavior := false

	for _, e := range entities {
		if e.Confidence > 0.9 {
			highConfidence++
		}
		if e.Type == domain.EntityRiskBehavior {
			hasRiskBehavior = true
		}
		if e.Type == domain.EntityDiagnosis {
			text := strings.ToLower(e.Text)
			for _, marker := range []string{"severe", "major", "acute"} {
				if strings.Contains(text, marker) {
					hasSevereDiagnosis = true
					break
				}
			}
		}
	}

	switch {
	case hasSevereDiagnosis || (highConfidence >= 3 && hasRiskBehavior):
		return domain.SeveritySevere
	case highConfidence >= 2 || hasRiskBehavior:
		return domain.SeverityModerate
	default:
		return domain.SeverityMild
	}
}
