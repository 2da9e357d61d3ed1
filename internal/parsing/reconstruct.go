package parsing

import (
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// LookBackWindow is how many preceding lines are searched for a missing item name
const LookBackWindow = 4

// membershipDigits is the length at which an all-digit line is taken to be a
// membership number rather than a stray barcode fragment
const membershipDigits = 10

var (
	reAllDigits   = regexp.MustCompile(`^\d+$`)
	reItemLeading = regexp.MustCompile(`^(?:[EF]\s+\d+|\d{4,}(?:\s|/|$))`)
	reNoiseMarker = regexp.MustCompile(`(?i)\b(?:MEMBER(?:SHIP)?|WHOLESALE|WAREHOUSE|SUB\s*TOTAL|TAX|TOTAL)\b|#\s*\d+`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// RecoverName rebuilds the name of the partial item at lines[index] from up to
// window preceding lines. Fragments are returned oldest first. When nothing
// usable precedes the line a placeholder built from code is returned.
func RecoverName(lines []string, index, window int, code string) string {
	var fragments []string

	for j := index - 1; j >= 0 && j >= index-window; j-- {
		line := lines[j]

		if reAllDigits.MatchString(line) {
			if len(line) >= membershipDigits {
				break
			}
			continue
		}
		if reItemLeading.MatchString(line) || reNoiseMarker.MatchString(line) {
			break
		}
		fragments = append(fragments, cleanName(line))
	}

	if len(fragments) == 0 {
		return placeholderName(code)
	}
	slices.Reverse(fragments)
	return strings.Join(fragments, " ")
}

func placeholderName(code string) string {
	return "ITEM " + code
}

// cleanName collapses the runs of spaces PDF reflow leaves inside names
func cleanName(name string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(name, " "))
}

// BindDiscounts applies the pending discounts to items by item code and
// returns the final item list. Discounts naming no item are dropped.
func BindDiscounts(items []LineItem, discounts map[string]decimal.Decimal) []LineItem {
	bound := make([]LineItem, 0, len(items))
	for _, item := range items {
		discount, ok := discounts[item.ItemCode]
		if !ok {
			discount = decimal.Zero
		}
		item.Discount = discount
		item.FinalPrice = item.UnitPrice.Sub(discount)
		bound = append(bound, item)
	}
	return bound
}
