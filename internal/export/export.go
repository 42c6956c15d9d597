// Package export renders a month of transactions as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"ledger/internal/core"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var columns = []struct {
	header string
	width  float64
}{
	{"Date", 12},
	{"Type", 10},
	{"Category", 14},
	{"Title", 32},
	{"Amount", 14},
}

// Filename returns the download name for ym, e.g. "ledger-2024-03.xlsx".
func Filename(ym core.YearMonth) string {
	return fmt.Sprintf("ledger-%s.xlsx", ym)
}

// WriteMonth writes the transactions of ym that appear in txs, oldest first,
// followed by income, expense and balance rows. Transactions outside ym are
// ignored.
func WriteMonth(w io.Writer, ym core.YearMonth, txs []core.Transaction) error {
	rows := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if ym.Contains(tx.Date) {
			rows = append(rows, tx)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	f := excelize.NewFile()
	defer f.Close()

	sheet := ym.Title()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetCellValue(sheet, name+"1", col.header); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, col.width); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", bold); err != nil {
		return err
	}

	var sum core.Summary
	for i, tx := range rows {
		sum = sum.Add(tx)
		values := []any{
			tx.Date,
			string(tx.Type),
			tx.Category.Info().Label,
			tx.Title,
			tx.Amount.InexactFloat64(),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	// one blank row between the items and the totals
	footer := len(rows) + 3
	totals := []struct {
		label string
		value float64
	}{
		{"Income", sum.Income.InexactFloat64()},
		{"Expense", sum.Expense.InexactFloat64()},
		{"Balance", sum.Balance().InexactFloat64()},
	}
	for i, t := range totals {
		row := footer + i
		if err := f.SetCellValue(sheet, fmt.Sprintf("D%d", row), t.label); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("E%d", row), t.value); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("D%d", footer), fmt.Sprintf("E%d", footer+2), bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
