// Package documentai extracts document text through a Document AI style OCR
// backend: bytes are fetched from the blob store, submitted to a processor
// chosen by mime type, and the overall confidence is the mean of the
// per-page layout confidences.
package documentai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
)

const (
	formParserProcessor = "form-parser"
	ocrProcessor        = "ocr"

	// Reported when the backend returns a document without page layouts;
	// never divide by zero.
	zeroPageConfidence = 0.75
)

type Extractor struct {
	blobs       ports.BlobStore
	httpClient  *http.Client
	baseURL     string
	processorID string
}

// New builds the adapter. processorID, when non-empty, overrides mime-type
// based processor selection.
func New(blobs ports.BlobStore, baseURL, processorID string) *Extractor {
	return &Extractor{
		blobs:       blobs,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		processorID: processorID,
	}
}

type processRequest struct {
	RawDocument rawDocument `json:"rawDocument"`
}

type rawDocument struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
}

type processResponse struct {
	Document struct {
		Text  string `json:"text"`
		Pages []struct {
			Layout struct {
				Confidence float64 `json:"confidence"`
			} `json:"layout"`
		} `json:"pages"`
	} `json:"document"`
}

func (e *Extractor) Extract(ctx context.Context, documentURI, documentType string) (domain.Extraction, error) {
	data, err := e.blobs.Fetch(ctx, documentURI)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "fetch document bytes", err)
	}

	resp, err := e.process(ctx, e.selectProcessor(documentType), data, documentType)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "document ai process", err)
	}

	return domain.Extraction{
		Text:       resp.Document.Text,
		Confidence: meanPageConfidence(resp),
	}, nil
}

func (e *Extractor) selectProcessor(documentType string) string {
	if e.processorID != "" {
		return e.processorID
	}
	if documentType == "application/pdf" {
		return formParserProcessor
	}
	return ocrProcessor
}

func (e *Extractor) process(ctx context.Context, processor string, data []byte, mimeType string) (*processResponse, error) {
	payload := processRequest{
		RawDocument: rawDocument{
			Content:  base64.StdEncoding.EncodeToString(data),
			MimeType: mimeType,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal process request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/processors/%s:process", e.baseURL, processor)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create process request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document ai request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		return nil, formatBackendHTTPError("process", httpResp)
	}

	var resp processResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode process response: %w", err)
	}
	return &resp, nil
}

func meanPageConfidence(resp *processResponse) float64 {
	pages := resp.Document.Pages
	if len(pages) == 0 {
		return zeroPageConfidence
	}
	var sum float64
	for _, p := range pages {
		sum += p.Layout.Confidence
	}
	return sum / float64(len(pages))
}

func formatBackendHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("document ai %s status: %s", operation, resp.Status)
	}
	return fmt.Errorf("document ai %s status: %s: %s", operation, resp.Status, msg)
}
