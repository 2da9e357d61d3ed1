package parsing

import "github.com/shopspring/decimal"

// tolerance is the largest difference still treated as a match
var tolerance = decimal.New(1, -2)

// Validate computes the calculated totals from the record's items and compares
// them against the declared subtotal and total.
func Validate(r *Record) {
	subtotal := decimal.Zero
	discounts := decimal.Zero
	for _, item := range r.Items {
		subtotal = subtotal.Add(item.FinalPrice)
		discounts = discounts.Add(item.Discount)
	}

	tax := decimal.Zero
	if r.Tax.Valid {
		tax = r.Tax.Decimal
	}

	r.CalculatedSubtotal = subtotal
	r.TotalDiscounts = discounts
	r.CalculatedTotal = subtotal.Add(tax)
	r.SubtotalValid = withinTolerance(r.Subtotal, r.CalculatedSubtotal)
	r.TotalValid = withinTolerance(r.Total, r.CalculatedTotal)
}

func withinTolerance(declared decimal.NullDecimal, calculated decimal.Decimal) *bool {
	if !declared.Valid {
		return nil
	}
	ok := declared.Decimal.Sub(calculated).Abs().LessThan(tolerance)
	return &ok
}
