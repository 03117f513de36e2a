// Package local extracts text in-process, without a cloud OCR backend:
// PDFs go through the pdf library, anything else is treated as UTF-8 text.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
	"github.com/hgottschalk/calaim-assistant/internal/core/ports"
)

// Local extraction has no layout model behind it, so it reports a flat
// confidence below the cloud backends.
const localConfidence = 0.80

type Extractor struct {
	blobs ports.BlobStore
}

func New(blobs ports.BlobStore) *Extractor {
	return &Extractor{blobs: blobs}
}

func (e *Extractor) Extract(ctx context.Context, documentURI, documentType string) (domain.Extraction, error) {
	data, err := e.blobs.Fetch(ctx, documentURI)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "fetch document bytes", err)
	}

	text := string(data)
	if documentType == "application/pdf" {
		text, err = pdfText(data)
		if err != nil {
			return domain.Extraction{}, domain.WrapError(domain.ErrExtraction, "parse pdf", err)
		}
	}

	return domain.Extraction{Text: text, Confidence: localConfidence}, nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}
	return buf.String(), nil
}
