// Package parsing turns text extracted from a warehouse-club receipt into line
// items and declared totals, cross-checking the arithmetic between them.
//
// The input is whatever PDF text extraction or OCR produced, so one logical item
// may be split across lines. Parsing is a single forward pass that classifies
// each line, recovers names for items whose name was wrapped onto earlier lines,
// and collects discount lines. Discounts are bound to items in a second pass.
package parsing

import (
	"github.com/shopspring/decimal"
)

// Parse parses receipt text. It returns nil when the text holds no lines at all,
// and a Record with no items when nothing item-shaped was found.
func Parse(text string) *Record {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return nil
	}

	record := &Record{
		ReceiptDate: ExtractDate(text),
	}
	items := make([]LineItem, 0)
	discounts := make(map[string]decimal.Decimal)

	for i, line := range lines {
		c := Classify(line)

		switch c.Kind {
		case KindSummary:
			declared := decimal.NewNullDecimal(c.Amount)
			switch c.Field {
			case FieldSubtotal:
				record.Subtotal = declared
			case FieldTax:
				record.Tax = declared
			case FieldTotal:
				record.Total = declared
			}

		case KindDiscount:
			discounts[c.Code] = c.Amount

		case KindCompleteItem, KindTaxableItem:
			items = append(items, LineItem{
				ItemCode:  c.Code,
				ItemName:  cleanName(c.Name),
				UnitPrice: c.Amount,
			})

		case KindPartialItem:
			items = append(items, LineItem{
				ItemCode:  c.Code,
				ItemName:  RecoverName(lines, i, LookBackWindow, c.Code),
				UnitPrice: c.Amount,
			})
		}
	}

	record.Items = BindDiscounts(items, discounts)
	Validate(record)

	return record
}
