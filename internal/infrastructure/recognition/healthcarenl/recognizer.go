// Package healthcarenl recognizes entities through a Healthcare Natural
// Language style backend. Native mention categories are mapped onto the
// closed EntityType set via a fixed table; unmapped categories and mentions
// below the salience acceptance threshold are dropped before returning.
package healthcarenl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

var categoryTable = map[string]domain.EntityType{
	"PROBLEM":         domain.EntityDiagnosis,
	"SYMPTOM":         domain.EntitySymptom,
	"MEDICINE":        domain.EntityMedication,
	"PROCEDURE":       domain.EntityProcedure,
	"SUBSTANCE_ABUSE": domain.EntityRiskBehavior,
	"SOCIAL_HISTORY":  domain.EntitySocialContext,
}

type Recognizer struct {
	httpClient        *http.Client
	baseURL           string
	salienceThreshold float64
}

func New(baseURL string, salienceThreshold float64) *Recognizer {
	return &Recognizer{
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		baseURL:           strings.TrimSuffix(baseURL, "/"),
		salienceThreshold: salienceThreshold,
	}
}

type analyzeRequest struct {
	DocumentContent      string   `json:"documentContent"`
	LicensedVocabularies []string `json:"licensedVocabularies,omitempty"`
}

type analyzeResponse struct {
	EntityMentions []entityMention `json:"entityMentions"`
	Entities       []linkedEntity  `json:"entities"`
}

type entityMention struct {
	Type string `json:"type"`
	Text struct {
		Content     string `json:"content"`
		BeginOffset int    `json:"beginOffset"`
	} `json:"text"`
	Confidence     float64 `json:"confidence"`
	LinkedEntities []struct {
		EntityID string `json:"entityId"`
	} `json:"linkedEntities"`
}

type linkedEntity struct {
	EntityID        string   `json:"entityId"`
	VocabularyCodes []string `json:"vocabularyCodes"`
}

func (r *Recognizer) Recognize(ctx context.Context, text string, includeUMLS bool) ([]domain.ExtractedEntity, error) {
	resp, err := r.analyze(ctx, text, includeUMLS)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRecognition, "healthcare nl analyze", err)
	}

	codesByID := make(map[string]linkedEntity, len(resp.Entities))
	for _, e := range resp.Entities {
		codesByID[e.EntityID] = e
	}

	entities := make([]domain.ExtractedEntity, 0, len(resp.EntityMentions))
	for _, mention := range resp.EntityMentions {
		entityType, ok := categoryTable[mention.Type]
		if !ok {
			continue
		}
		if mention.Confidence < r.salienceThreshold {
			continue
		}

		entity := domain.ExtractedEntity{
			Type:       entityType,
			Text:       mention.Text.Content,
			Confidence: mention.Confidence,
		}
		if mention.Text.Content != "" {
			entity.Position = &domain.TextSpan{
				Start: mention.Text.BeginOffset,
				End:   mention.Text.BeginOffset + len(mention.Text.Content),
			}
		}
		attachCodes(&entity, mention, codesByID, includeUMLS)
		entities = append(entities, entity)
	}
	return entities, nil
}

func attachCodes(entity *domain.ExtractedEntity, mention entityMention, codesByID map[string]linkedEntity, includeUMLS bool) {
	for _, link := range mention.LinkedEntities {
		if includeUMLS && entity.UmlsCUI == "" {
			if cui, ok := strings.CutPrefix(link.EntityID, "UMLS/"); ok {
				entity.UmlsCUI = cui
			}
		}
		linked, ok := codesByID[link.EntityID]
		if !ok {
			continue
		}
		for _, code := range linked.VocabularyCodes {
			if v, ok := strings.CutPrefix(code, "SNOMEDCT_US/"); ok && entity.SnomedCode == "" {
				entity.SnomedCode = v
			}
			if v, ok := strings.CutPrefix(code, "ICD10CM/"); ok && entity.ICD10Code == "" {
				entity.ICD10Code = v
			}
		}
	}
}

func (r *Recognizer) analyze(ctx context.Context, text string, includeUMLS bool) (*analyzeResponse, error) {
	payload := analyzeRequest{DocumentContent: text}
	if includeUMLS {
		payload.LicensedVocabularies = []string{"UMLS"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/nlp:analyzeEntities", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("healthcare nl request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return nil, fmt.Errorf("healthcare nl analyze status: %s", httpResp.Status)
		}
		return nil, fmt.Errorf("healthcare nl analyze status: %s: %s", httpResp.Status, msg)
	}

	var resp analyzeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	return &resp, nil
}
