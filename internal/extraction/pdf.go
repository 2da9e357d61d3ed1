package extraction

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDF extracts the embedded text layer of digitally generated PDFs
type PDF struct{}

// NewPDF creates a new PDF text extractor
func NewPDF() *PDF {
	return &PDF{}
}

// ExtractText concatenates the text of every page, separated by newlines
func (p *PDF) ExtractText(data []byte, contentType string) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var text strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		page, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", n+1, err)
		}
		text.WriteString(page)
		text.WriteString("\n")
	}

	return text.String(), nil
}

// Close is a no-op; documents are closed after each extraction
func (p *PDF) Close() error {
	return nil
}
