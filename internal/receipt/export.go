package receipt

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet = "Items"
	// Built-in number format "0.00"
	moneyNumFmt = 2
)

var exportHeader = []interface{}{
	"Receipt ID", "Item Code", "Item Name", "Unit Price", "Discount", "Final Price", "Receipt Date",
}

// WriteWorkbook writes one row per line item across all receipts
func WriteWorkbook(w io.Writer, receipts []*Receipt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return fmt.Errorf("creating money style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("opening stream writer: %w", err)
	}
	if err := sw.SetColWidth(3, 3, 40); err != nil {
		return fmt.Errorf("sizing name column: %w", err)
	}

	if err := sw.SetRow("A1", exportHeader, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	money := func(d decimal.Decimal) excelize.Cell {
		return excelize.Cell{StyleID: moneyStyle, Value: d.Round(2).InexactFloat64()}
	}

	row := 2
	for _, r := range receipts {
		var date interface{}
		if r.ReceiptDate != nil {
			date = r.ReceiptDate.Format("2006-01-02")
		}

		for _, item := range r.Items {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{
				int64(r.ID),
				item.ItemCode,
				item.ItemName,
				money(item.UnitPrice),
				money(item.Discount),
				money(item.FinalPrice),
				date,
			}
			if err := sw.SetRow(cell, values); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
