package parsing

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Kind identifies what a single receipt line represents
type Kind int

const (
	KindUnclassified Kind = iota
	KindSummary
	KindDiscount
	KindCompleteItem
	KindPartialItem
	KindTaxableItem
)

func (k Kind) String() string {
	switch k {
	case KindSummary:
		return "summary"
	case KindDiscount:
		return "discount"
	case KindCompleteItem:
		return "complete-item"
	case KindPartialItem:
		return "partial-item"
	case KindTaxableItem:
		return "taxable-item"
	default:
		return "unclassified"
	}
}

// SummaryField names which declared amount a summary line carries
type SummaryField int

const (
	FieldNone SummaryField = iota
	FieldSubtotal
	FieldTax
	FieldTotal
)

// Classification is the tagged result of classifying one line.
// Which fields are set depends on Kind.
type Classification struct {
	Kind  Kind
	Field SummaryField

	// Code is the item code; for discounts it is the credited item's code
	Code string
	// SourceCode is the discount's own code (discount lines only)
	SourceCode string
	Name       string
	Amount     decimal.Decimal
	// TypeMarker is the leading E/F marker when present
	TypeMarker string
	Taxable    bool
}

var (
	reSubtotal = regexp.MustCompile(`(?i)\bSUB\s*TOTAL\s+(\d+\.\d{2})\b`)
	reTax      = regexp.MustCompile(`(?i)\bTAX\s+(\d+\.\d{2})\b`)
	reTotal    = regexp.MustCompile(`(?i)(?:^|\*)\s*TOTAL\s+(\d+\.\d{2})\b`)

	reDiscount     = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)\s+(\d+\.\d{2})-`)
	reCompleteItem = regexp.MustCompile(`^(?:([EF])\s+)?(\d+)\s+(.+?)\s+(\d+\.\d{2})\s+([NY])$`)
	rePartialItem  = regexp.MustCompile(`^(?:([EF])\s+)?(\d+)\s+(\d+\.\d{2})\s+([NY])$`)
	reTaxableItem  = regexp.MustCompile(`^(\d+)\s+(.+?)\s+(\d+\.\d{2})\s+Y\b`)
)

type matcher func(line string) (Classification, bool)

// matchers run in priority order; the first hit wins.
var matchers = []matcher{
	matchSummary,
	matchDiscount,
	matchCompleteItem,
	matchPartialItem,
	matchTaxableItem,
}

// Classify assigns a line to exactly one Kind
func Classify(line string) Classification {
	for _, match := range matchers {
		if c, ok := match(line); ok {
			return c
		}
	}
	return Classification{Kind: KindUnclassified}
}

var summaryPatterns = []struct {
	field   SummaryField
	pattern *regexp.Regexp
}{
	{FieldSubtotal, reSubtotal},
	{FieldTax, reTax},
	{FieldTotal, reTotal},
}

func matchSummary(line string) (Classification, bool) {
	for _, p := range summaryPatterns {
		m := p.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		amount, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		return Classification{Kind: KindSummary, Field: p.field, Amount: amount}, true
	}
	return Classification{}, false
}

func matchDiscount(line string) (Classification, bool) {
	m := reDiscount.FindStringSubmatch(line)
	if m == nil {
		return Classification{}, false
	}
	amount, err := decimal.NewFromString(m[3])
	if err != nil {
		return Classification{}, false
	}
	return Classification{
		Kind:       KindDiscount,
		SourceCode: m[1],
		Code:       m[2],
		Amount:     amount,
	}, true
}

func matchCompleteItem(line string) (Classification, bool) {
	m := reCompleteItem.FindStringSubmatch(line)
	if m == nil {
		return Classification{}, false
	}
	price, err := decimal.NewFromString(m[4])
	if err != nil {
		return Classification{}, false
	}
	return Classification{
		Kind:       KindCompleteItem,
		TypeMarker: m[1],
		Code:       m[2],
		Name:       m[3],
		Amount:     price,
		Taxable:    m[5] == "Y",
	}, true
}

func matchPartialItem(line string) (Classification, bool) {
	m := rePartialItem.FindStringSubmatch(line)
	if m == nil {
		return Classification{}, false
	}
	price, err := decimal.NewFromString(m[3])
	if err != nil {
		return Classification{}, false
	}
	return Classification{
		Kind:       KindPartialItem,
		TypeMarker: m[1],
		Code:       m[2],
		Amount:     price,
		Taxable:    m[4] == "Y",
	}, true
}

func matchTaxableItem(line string) (Classification, bool) {
	m := reTaxableItem.FindStringSubmatch(line)
	if m == nil {
		return Classification{}, false
	}
	price, err := decimal.NewFromString(m[3])
	if err != nil {
		return Classification{}, false
	}
	return Classification{
		Kind:    KindTaxableItem,
		Code:    m[1],
		Name:    m[2],
		Amount:  price,
		Taxable: true,
	}, true
}
