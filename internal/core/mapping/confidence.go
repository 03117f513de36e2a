package mapping

import "github.com/hgottschalk/calaim-assistant/internal/core/domain"

// DefaultWeights reflects how strongly each entity type corroborates a
// clinical finding. Unlisted types fall back to defaultTypeWeight.
var DefaultWeights = map[domain.EntityType]float64{
	domain.EntityDiagnosis:     1.00,
	domain.EntityRiskBehavior:  0.95,
	domain.EntitySymptom:       0.90,
	domain.EntityTraumaEvent:   0.90,
	domain.EntityMedication:    0.85,
	domain.EntitySocialContext: 0.80,
	domain.EntityStrength:      0.70,
}

const defaultTypeWeight = 0.70

const (
	// confidenceCap keeps any aggregate strictly below near-certainty.
	confidenceCap = 0.98

	countBoostStep = 0.02
	countBoostMax  = 0.10
)

// Aggregate returns the arithmetic mean of type-weighted entity confidences,
// or 0 for an empty list. The result is invariant under entity reordering.
func Aggregate(entities []domain.ExtractedEntity, weights map[domain.EntityType]float64) float64 {
	if len(entities) == 0 {
		return 0.0
	}
	var sum float64
	for _, e := range entities {
		weight, ok := weights[e.Type]
		if !ok {
			weight = defaultTypeWeight
		}
		sum += e.Confidence * weight
	}
	return sum / float64(len(entities))
}

// AggregateWithCountBoost is the per-domain variant of Aggregate: more
// corroborating entities raise confidence, with both the boost and the final
// score capped.
func AggregateWithCountBoost(entities []domain.ExtractedEntity, weights map[domain.EntityType]float64) float64 {
	if len(entities) == 0 {
		return 0.0
	}
	boost := countBoostStep * float64(len(entities))
	if boost > countBoostMax {
		boost = countBoostMax
	}
	boosted := Aggregate(entities, weights) + boost
	if boosted > confidenceCap {
		return confidenceCap
	}
	return boosted
}
