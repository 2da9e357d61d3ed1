package parsing

import (
	"regexp"
	"strings"
	"time"
)

var (
	reLineBreaks = regexp.MustCompile(`\r\n?`)
	reDate       = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
)

// SplitLines breaks extracted text into trimmed, non-empty lines in source order
func SplitLines(text string) []string {
	text = reLineBreaks.ReplaceAllString(text, "\n")

	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ExtractDate returns the first MM/DD/YYYY date in the text, or nil.
// Matches that are not real calendar dates (13/45/2024) are passed over.
func ExtractDate(text string) *time.Time {
	for _, candidate := range reDate.FindAllString(text, -1) {
		date, err := time.Parse("01/02/2006", candidate)
		if err != nil {
			continue
		}
		return &date
	}
	return nil
}
