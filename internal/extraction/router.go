package extraction

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Router picks an extractor by content type. PDFs are read from their text
// layer and handed to OCR only when that layer is empty (scanned PDFs).
// Images always go to OCR. A nil OCR extractor means images are rejected.
type Router struct {
	pdf Extractor
	ocr Extractor
}

// NewRouter creates a Router over the PDF text layer and an optional OCR extractor
func NewRouter(ocr Extractor) *Router {
	return NewRouterWithDeps(NewPDF(), ocr)
}

// NewRouterWithDeps creates a Router with custom extractors for testing
func NewRouterWithDeps(pdf Extractor, ocr Extractor) *Router {
	return &Router{
		pdf: pdf,
		ocr: ocr,
	}
}

// ExtractText dispatches the document to the matching extractor
func (r *Router) ExtractText(data []byte, contentType string) (string, error) {
	mimeType := normalizeMIMEType(contentType)

	switch {
	case mimeType == "application/pdf":
		text, err := r.pdf.ExtractText(data, mimeType)
		if err != nil {
			return "", fmt.Errorf("reading PDF text layer: %w", err)
		}
		if strings.TrimSpace(text) != "" || r.ocr == nil {
			return text, nil
		}
		slog.Info("PDF has no text layer, falling back to OCR", "size", len(data))
		return r.ocr.ExtractText(data, mimeType)

	case strings.HasPrefix(mimeType, "image/"):
		if r.ocr == nil {
			return "", fmt.Errorf("%w: %s (no OCR extractor configured)", ErrUnsupported, mimeType)
		}
		return r.ocr.ExtractText(data, mimeType)

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
}

// Close closes both extractors
func (r *Router) Close() error {
	var errs []error
	if err := r.pdf.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.ocr != nil {
		if err := r.ocr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
