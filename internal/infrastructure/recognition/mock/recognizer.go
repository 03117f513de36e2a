// Package mock recognizes entities by scanning for fixed keyword sets per
// category. Confidences are hardcoded per category, not computed from match
// strength, so runs over identical text are byte-for-byte reproducible.
package mock

import (
	"context"
	"strings"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

type rule struct {
	keywords []string
	entity   domain.ExtractedEntity
}

// Rules fire in a fixed order; each category emits at most one entity.
var rules = []rule{
	{
		keywords: []string{"depress"},
		entity: domain.ExtractedEntity{
			Type:       domain.EntityDiagnosis,
			Text:       "Major Depressive Disorder",
			Confidence: 0.92,
			SnomedCode: "370143000",
			ICD10Code:  "F32.9",
		},
	},
	{
		keywords: []string{"anxiet", "anxious", "worry"},
		entity: domain.ExtractedEntity{
			Type:       domain.EntityDiagnosis,
			Text:       "Generalized Anxiety Disorder",
			Confidence: 0.89,
			SnomedCode: "48694002",
			ICD10Code:  "F41.1",
		},
	},
	{
		keywords: []string{"sleep", "insomnia"},
		entity: domain.ExtractedEntity{
			Type:       domain.EntitySymptom,
			Text:       "Insomnia",
			Confidence: 0.87,
			SnomedCode: "193462001",
		},
	},
	{
		keywords: []string{"alcohol", "drink", "substance", "drug"},
		entity: domain.ExtractedEntity{
			Type:       domain.EntityRiskBehavior,
			Text:       "Substance use",
			Confidence: 0.82,
		},
	},
	{
		keywords: []string{"home", "house", "housing", "homeless"},
		entity: domain.ExtractedEntity{
			Type:       domain.EntitySocialContext,
			Text:       "Housing instability",
			Confidence: 0.85,
		},
	},
	{
		keywords: []string{"trauma", "abuse", "neglect"},
		entity: domain.ExtractedEntity{
			Type:       domain.EntityTraumaEvent,
			Text:       "History of trauma",
			Confidence: 0.79,
		},
	},
	{
		keywords: []string{"suicid", "harm", "ideation"},
		entity: domain.ExtractedEntity{
			Type:       domain.EntityRiskBehavior,
			Text:       "Suicidal ideation",
			Confidence: 0.78,
		},
	},
}

// medicationEntity is appended whenever any diagnosis matched. A deliberate
// mock heuristic, not a prescription inference; downstream tests depend on
// this exact entity.
var medicationEntity = domain.ExtractedEntity{
	Type:       domain.EntityMedication,
	Text:       "Sertraline 50mg daily",
	Confidence: 0.92,
}

// noteEntity keeps the mock path from ever returning an empty list.
var noteEntity = domain.ExtractedEntity{
	Type:       domain.EntityNote,
	Text:       "No specific entities detected",
	Confidence: 0.7,
}

type Recognizer struct{}

func New() *Recognizer {
	return &Recognizer{}
}

func (r *Recognizer) Recognize(_ context.Context, text string, _ bool) ([]domain.ExtractedEntity, error) {
	lower := strings.ToLower(text)

	var entities []domain.ExtractedEntity
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				entities = append(entities, rule.entity)
				break
			}
		}
	}

	for _, e := range entities {
		if e.Type == domain.EntityDiagnosis {
			entities = append(entities, medicationEntity)
			break
		}
	}

	if len(entities) == 0 {
		entities = append(entities, noteEntity)
	}
	return entities, nil
}
