package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/gaurav-prasanna/ordinancepipe/core"
)

const (
	scoresSheet  = "Scores"
	summarySheet = "Summary"
)

// XLSXRenderer writes a workbook with a Scores sheet and a Summary sheet.
type XLSXRenderer struct{}

// NewXLSXRenderer creates an XLSXRenderer.
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

func (r *XLSXRenderer) Render(a *core.Analysis) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("nil analysis")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scoresSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	_ = f.SetCellValue(scoresSheet, "A1", "Category")
	_ = f.SetCellValue(scoresSheet, "B1", "Score")
	row := 2
	for _, name := range scoreOrder(a.Scores) {
		nameCell, _ := excelize.CoordinatesToCellName(1, row)
		scoreCell, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(scoresSheet, nameCell, name)
		_ = f.SetCellValue(scoresSheet, scoreCell, a.Scores[name])
		row++
	}
	_ = f.SetColWidth(scoresSheet, "A", "A", 40)

	write := func(cell string, v any) {
		_ = f.SetCellValue(summarySheet, cell, v)
	}
	write("A1", "Source")
	write("B1", a.URL)
	write("A2", "Analyzed")
	if !a.AnalyzedAt.IsZero() {
		write("B2", a.AnalyzedAt.Format("2006-01-02 15:04 MST"))
	}
	write("A3", "Summary")
	write("B3", a.Summary)
	_ = f.SetColWidth(summarySheet, "B", "B", 100)

	if idx, err := f.GetSheetIndex(scoresSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for workbook output.
func (r *XLSXRenderer) Extension() string {
	return ".xlsx"
}
