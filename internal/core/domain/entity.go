package domain

// EntityType is the closed set of clinical entity categories the pipeline
// understands. Recognizer backends map their native categories onto this set;
// anything that does not map is dropped before it reaches domain mapping.
type EntityType string

const (
	EntityDiagnosis     EntityType = "Diagnosis"
	EntitySymptom       EntityType = "Symptom"
	EntityMedication    EntityType = "Medication"
	EntityRiskBehavior  EntityType = "Risk_Behavior"
	EntitySocialContext EntityType = "Social_Context"
	EntityTraumaEvent   EntityType = "Trauma_Event"
	EntityStrength      EntityType = "Strength"
	EntityProcedure     EntityType = "Procedure"
	EntityNote          EntityType = "Note"
)

// TextSpan locates an entity mention inside the extracted document text.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ExtractedEntity is a typed, confidence-scored span of clinical meaning.
// Instances are immutable once produced by a recognizer.
type ExtractedEntity struct {
	Type       EntityType `json:"type"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	SnomedCode string     `json:"snomedCode,omitempty"`
	ICD10Code  string     `json:"icd10Code,omitempty"`
	UmlsCUI    string     `json:"umlsCui,omitempty"`
	Position   *TextSpan  `json:"position,omitempty"`
}

// Extraction is the output of an extraction adapter: the raw document text
// plus the backend's overall confidence in the OCR/layout pass.
type Extraction struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// FilterByConfidence returns the entities whose confidence meets the
// threshold, preserving order.
func FilterByConfidence(entities []ExtractedEntity, threshold float64) []ExtractedEntity {
	out := make([]ExtractedEntity, 0, len(entities))
	for _, e := range entities {
		if e.Confidence >= threshold {
			out = append(out, e)
		}
	}
	return out
}
