package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

func TestRecognizeEntitiesAppliesDefaultThreshold(t *testing.T) {
	recognizer := &fakeRecognizer{entities: []domain.ExtractedEntity{
		{Type: domain.EntityDiagnosis, Text: "MDD", Confidence: 0.92},
		{Type: domain.EntitySymptom, Text: "low mood", Confidence: 0.4},
	}}
	uc := NewAnalyzeTextUseCase(recognizer, 0.5)

	entities, err := uc.RecognizeEntities(context.Background(), "note text", nil, false)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(entities) != 1 || entities[0].Text != "MDD" {
		t.Fatalf("expected only the high-confidence entity, got %+v", entities)
	}
}

func TestRecognizeEntitiesHonorsExplicitThreshold(t *testing.T) {
	recognizer := &fakeRecognizer{entities: []domain.ExtractedEntity{
		{Type: domain.EntityDiagnosis, Text: "MDD", Confidence: 0.92},
		{Type: domain.EntitySymptom, Text: "low mood", Confidence: 0.4},
	}}
	uc := NewAnalyzeTextUseCase(recognizer, 0.5)

	threshold := 0.3
	entities, err := uc.RecognizeEntities(context.Background(), "note text", &threshold, false)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected both entities at threshold 0.3, got %+v", entities)
	}
}

func TestRecognizeEntitiesRejectsEmptyText(t *testing.T) {
	uc := NewAnalyzeTextUseCase(&fakeRecognizer{}, 0.5)

	_, err := uc.RecognizeEntities(context.Background(), "", nil, false)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecognizeEntitiesRejectsThresholdOutOfRange(t *testing.T) {
	uc := NewAnalyzeTextUseCase(&fakeRecognizer{}, 0.5)

	for _, threshold := range []float64{-0.1, 1.1} {
		_, err := uc.RecognizeEntities(context.Background(), "note", &threshold, false)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("threshold %f: expected validation error, got %v", threshold, err)
		}
	}
}

func TestRecognizeEntitiesPropagatesBackendError(t *testing.T) {
	recognizer := &fakeRecognizer{err: errors.New("backend unavailable")}
	uc := NewAnalyzeTextUseCase(recognizer, 0.5)

	_, err := uc.RecognizeEntities(context.Background(), "note", nil, false)
	if err == nil {
		t.Fatal("expected backend error to surface")
	}
}

func TestMapDomainsAlwaysReturnsSuggestions(t *testing.T) {
	uc := NewAnalyzeTextUseCase(&fakeRecognizer{}, 0.5)

	suggestions := uc.MapDomains(nil)
	if len(suggestions) == 0 {
		t.Fatal("expected the fallback suggestion for an empty entity set")
	}
	if suggestions[0].DomainType != domain.DomainPresentingProblem {
		t.Fatalf("expected presenting problem fallback, got %s", suggestions[0].DomainType)
	}
}
