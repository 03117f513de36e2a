package usecase

import (
	"context"
	"fmt"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/mapping"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
)

// AnalyzeTextUseCase serves the synchronous NLP endpoints that work on raw
// text without a job.
type AnalyzeTextUseCase struct {
	recognizer       ports.EntityRecognizer
	defaultThreshold float64
}

func NewAnalyzeTextUseCase(recognizer ports.EntityRecognizer, defaultThreshold float64) *AnalyzeTextUseCase {
	return &AnalyzeTextUseCase{
		recognizer:       recognizer,
		defaultThreshold: defaultThreshold,
	}
}

// RecognizeEntities extracts entities above the threshold. A nil threshold
// falls back to the configured default.
func (uc *AnalyzeTextUseCase) RecognizeEntities(
	ctx context.Context,
	text string,
	threshold *float64,
	includeUMLS bool,
) ([]domain.ExtractedEntity, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text must not be empty", domain.ErrValidation)
	}

	limit := uc.defaultThreshold
	if threshold != nil {
		if *threshold < 0 || *threshold > 1 {
			return nil, fmt.Errorf("%w: confidenceThreshold must be between 0 and 1", domain.ErrValidation)
		}
		limit = *threshold
	}

	entities, err := uc.recognizer.Recognize(ctx, text, includeUMLS)
	if err != nil {
		return nil, fmt.Errorf("recognize entities: %w", err)
	}
	return domain.FilterByConfidence(entities, limit), nil
}

// MapDomains is pure and always succeeds; an empty entity set maps to the
// fallback presenting-problem suggestion.
func (uc *AnalyzeTextUseCase) MapDomains(entities []domain.ExtractedEntity) []domain.DomainSuggestion {
	return mapping.MapToDomains(entities)
}
