package parsing

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one purchased product recovered from the receipt text
type LineItem struct {
	ItemCode   string          `json:"item_code"`
	ItemName   string          `json:"item_name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Discount   decimal.Decimal `json:"discount"`
	FinalPrice decimal.Decimal `json:"final_price"` // UnitPrice - Discount
}

// Record is the structured result of parsing one receipt's text
type Record struct {
	Items       []LineItem          `json:"items"`
	Subtotal    decimal.NullDecimal `json:"subtotal"`
	Tax         decimal.NullDecimal `json:"tax"`
	Total       decimal.NullDecimal `json:"total"`
	ReceiptDate *time.Time          `json:"receipt_date"`

	CalculatedSubtotal decimal.Decimal `json:"calculated_subtotal"`
	CalculatedTotal    decimal.Decimal `json:"calculated_total"`
	TotalDiscounts     decimal.Decimal `json:"total_discounts"`

	// Validity flags are nil when the receipt never declared the value
	SubtotalValid *bool `json:"subtotal_valid"`
	TotalValid    *bool `json:"total_valid"`
}
