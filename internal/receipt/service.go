package receipt

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bharathkumarkammari/Receipt-Parser/internal/extraction"
	"github.com/bharathkumarkammari/Receipt-Parser/internal/parsing"
)

var (
	// ErrNoText is returned when a document yields no text lines at all
	ErrNoText = errors.New("no text could be extracted from the document")

	// ErrNoItems is returned when text was found but no line items were recognized
	ErrNoItems = errors.New("no line items were recognized on the receipt")
)

var (
	reUnsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reFilenameSpaces = regexp.MustCompile(`\s+`)
)

const maxFilenameBase = 50

// IDGenerator generates the unique prefix of stored file names
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service extracts, parses and stores receipts
type Service struct {
	db          DB
	extractor   extraction.Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	metrics     *Metrics
}

// NewService creates a new Service with uuid file names and the wall clock
func NewService(db DB, extractor extraction.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		metrics:     NewMetrics(),
	}
}

// Metrics returns the service's collectors
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// sanitizeFilename strips phone-camera noise from a filename and bounds its length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = reUnsafeFilename.ReplaceAllString(base, "")
	base = strings.TrimSpace(reFilenameSpaces.ReplaceAllString(base, " "))
	base = strings.ReplaceAll(base, " ", "-")

	if len(base) > maxFilenameBase {
		base = base[:maxFilenameBase]
	}
	if base == "" {
		base = "receipt"
	}
	if len(ext) < 2 || reUnsafeFilename.MatchString(ext[1:]) {
		ext = ""
	}
	return base + ext
}

// parse runs the parser and turns its absent and empty results into errors
func parse(text string) (*parsing.Record, error) {
	record := parsing.Parse(text)
	if record == nil {
		return nil, ErrNoText
	}
	if len(record.Items) == 0 {
		return record, ErrNoItems
	}
	return record, nil
}

// logValidation reports declared totals that disagree with the items
func logValidation(filename string, r *parsing.Record) {
	if r.SubtotalValid != nil && !*r.SubtotalValid {
		slog.Warn("Subtotal does not match items",
			"filename", filename,
			"declared", r.Subtotal.Decimal.StringFixed(2),
			"calculated", r.CalculatedSubtotal.StringFixed(2),
		)
	}
	if r.TotalValid != nil && !*r.TotalValid {
		slog.Warn("Total does not match subtotal plus tax",
			"filename", filename,
			"declared", r.Total.Decimal.StringFixed(2),
			"calculated", r.CalculatedTotal.StringFixed(2),
		)
	}
}

// ProcessReceipt extracts text from an uploaded document, parses it and
// stores both the document and the parsed receipt
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	text, err := s.extractor.ExtractText(data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.metrics.observeOutcome(outcomeExtractError)
		return nil, fmt.Errorf("extracting text: %w", err)
	}
	slog.Debug("Extracted receipt text", "filename", filename, "text", text)

	record, err := parse(text)
	if err != nil {
		slog.Error("Failed to parse receipt", "filename", filename, "error", err)
		if errors.Is(err, ErrNoText) {
			s.metrics.observeOutcome(outcomeNoText)
		} else {
			s.metrics.observeOutcome(outcomeNoItems)
		}
		return nil, err
	}
	logValidation(filename, record)

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename)), data)
	if err != nil {
		s.metrics.observeOutcome(outcomeStoreError)
		return nil, fmt.Errorf("saving file: %w", err)
	}

	receipt := &Receipt{
		Filename:    filename,
		StoredFile:  savedName,
		ContentType: contentType,
		UploadedAt:  s.timeSource.Now(),
		Record:      *record,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to clean up stored file", "stored_file", savedName, "error", delErr)
		}
		s.metrics.observeOutcome(outcomeStoreError)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	s.metrics.observeOutcome(outcomeSaved)
	s.metrics.observeRecord(&receipt.Record)
	slog.Info("Receipt processed",
		"id", receipt.ID,
		"filename", filename,
		"items", len(receipt.Items),
		"calculated_subtotal", receipt.CalculatedSubtotal.StringFixed(2),
	)
	return receipt, nil
}

// ParseText parses already-extracted text without storing anything.
// A record with no items is returned as is.
func (s *Service) ParseText(text string) (*parsing.Record, error) {
	record, err := parse(text)
	if errors.Is(err, ErrNoText) {
		return nil, err
	}
	logValidation("", record)
	return record, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id uint64) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its stored document
func (s *Service) DeleteReceipt(id uint64) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if err := s.storage.Delete(receipt.StoredFile); err != nil {
		slog.Warn("Failed to delete file", "stored_file", receipt.StoredFile, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// ClearReceipts removes every receipt and stored document
func (s *Service) ClearReceipts() error {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return fmt.Errorf("listing receipts: %w", err)
	}

	for _, receipt := range receipts {
		if err := s.storage.Delete(receipt.StoredFile); err != nil {
			slog.Warn("Failed to delete file", "stored_file", receipt.StoredFile, "error", err)
		}
	}

	if err := s.db.ClearReceipts(); err != nil {
		return fmt.Errorf("clearing receipts: %w", err)
	}
	slog.Info("Cleared receipts", "count", len(receipts))
	return nil
}

// GetReceiptFile retrieves the original document for a receipt
func (s *Service) GetReceiptFile(id uint64) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.StoredFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}

// ExportWorkbook writes every stored item to a spreadsheet
func (s *Service) ExportWorkbook(w io.Writer) error {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return fmt.Errorf("listing receipts: %w", err)
	}
	if err := WriteWorkbook(w, receipts); err != nil {
		return fmt.Errorf("exporting receipts: %w", err)
	}
	return nil
}
