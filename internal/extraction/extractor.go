package extraction

import "errors"

// ErrUnsupported is returned for content types no configured extractor can read
var ErrUnsupported = errors.New("unsupported content type")

// Extractor defines the interface for turning an uploaded document into text
type Extractor interface {
	// ExtractText returns the document's text, one printed line per line.
	// An empty string means the document held no extractable text.
	ExtractText(data []byte, contentType string) (string, error)
	// Close closes the extractor and releases resources
	Close() error
}
