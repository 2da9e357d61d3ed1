package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bharathkumarkammari/Receipt-Parser/internal/extraction"
)

const (
	maxUploadSize   = int64(50 << 20)
	maxParseTextLen = int64(1 << 20)
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes {"error": message}
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// receiptID parses the {id} path value, writing a 400 when it is not a positive integer
func receiptID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeJSONError(w, http.StatusBadRequest, "Invalid receipt ID")
		return 0, false
	}
	return id, true
}

// contentTypeFor falls back to the file extension when the client sent no type
func contentTypeFor(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// uploadErrorMessage turns a processing error into the message shown to the user
func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, extraction.ErrUnsupported):
		return "Unsupported file type. Please upload a PDF or an image of the receipt."
	case errors.Is(err, ErrNoText):
		return "No text could be read from this file. Please ensure this is a valid receipt."
	case errors.Is(err, ErrNoItems):
		return "Failed to parse receipt data. Please ensure this is a valid receipt."
	default:
		return err.Error()
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Ensure we always return an array, not nil
	if receipts == nil {
		receipts = []*Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipt handles receipt upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB.")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := contentTypeFor(header.Header.Get("Content-Type"), header.Filename)

	receipt, err := s.service.ProcessReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeJSONError(w, http.StatusBadRequest, uploadErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.GetReceipt(id)
	if errors.Is(err, ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	if err != nil {
		slog.Error("Error getting receipt", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the original upload for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		slog.Error("Error getting receipt file", "id", id, "error", err)
		writeJSONError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	err := s.service.DeleteReceipt(id)
	if errors.Is(err, ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	if err != nil {
		slog.Error("Error deleting receipt", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Error deleting receipt")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClearReceipts deletes every receipt
func (s *Server) handleClearReceipts(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearReceipts(); err != nil {
		slog.Error("Error clearing receipts", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Error clearing receipts")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleParseText parses a plain-text receipt body without storing it
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxParseTextLen))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Error reading request body")
		return
	}

	record, err := s.service.ParseText(string(body))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, uploadErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleExport downloads every stored item as a spreadsheet
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportWorkbook(&buf); err != nil {
		slog.Error("Error exporting receipts", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Error exporting receipts")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.Write(buf.Bytes())
}
