package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

type Workbook struct {
	File *excelize.File
}

// NewWorkbook: по листу на SheetSpec: жирная шапка, автофильтр, ширина по содержимому.
func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	f := excelize.NewFile()
	for i, s := range sheets {
		name := sheetName(s.Title, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		if err := f.SetSheetRow(name, "A1", &s.Header); err != nil {
			return nil, fmt.Errorf("header %s: %w", name, err)
		}
		for r, row := range s.Rows {
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = v
			}
			cell := fmt.Sprintf("A%d", r+2)
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return nil, fmt.Errorf("row %s: %w", cell, err)
			}
		}
		if err := ApplyDefaultExcelFormatting(f, name); err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		// таблицы на арабском читаются справа налево
		rtl := true
		_ = f.SetSheetView(name, -1, &excelize.ViewOptions{RightToLeft: &rtl})
	}
	return &Workbook{File: f}, nil
}

// Bytes: xlsx целиком в память, для отдачи по HTTP или в Telegram.
func (w *Workbook) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.File.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Excel ограничивает имя листа 31 символом.
func sheetName(title string, i int) string {
	title = invalidSheetRe.ReplaceAllString(cleanName(title), " ")
	r := []rune(title)
	if len(r) > 31 {
		r = r[:31]
	}
	if len(r) == 0 {
		return fmt.Sprintf("Sheet%d", i+1)
	}
	return string(r)
}
