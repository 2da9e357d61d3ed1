package receipt

import (
	"time"

	"github.com/bharathkumarkammari/Receipt-Parser/internal/parsing"
)

// Receipt is a parsed receipt as stored, with upload metadata
type Receipt struct {
	ID          uint64    `json:"id"` // Assigned by the database, never reused
	Filename    string    `json:"filename"`
	StoredFile  string    `json:"stored_file"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"upload_date"`

	parsing.Record
}
