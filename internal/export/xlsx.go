package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteXLSX
const SheetName = "Sheet1"

// WriteXLSX writes the sheet as a workbook with a single worksheet. in
// ModeFormulas each formula cell carries both the formula and its cached
// value, so other tools can display it without recalculating.
func WriteXLSX(w io.Writer, sheet *spreadsheet.Sheet, mode Mode) error {
	f := excelize.NewFile()
	defer f.Close()

	for record := range sheet.ActiveCells() {
		if err := setCellValue(f, record.Ref, record.Value); err != nil {
			return fmt.Errorf("write %s: %w", record.Ref, err)
		}
		if mode != ModeFormulas || !strings.HasPrefix(record.Formula, "=") {
			continue
		}
		if err := f.SetCellFormula(SheetName, record.Ref, record.Formula[1:]); err != nil {
			return fmt.Errorf("write %s: %w", record.Ref, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setCellValue(f *excelize.File, ref string, v spreadsheet.Value) error {
	switch v.Kind {
	case spreadsheet.KindNumber:
		return f.SetCellValue(SheetName, ref, v.Num)
	default:
		return f.SetCellValue(SheetName, ref, v.String())
	}
}

// ReadXLSX reads the first worksheet of a workbook. formula cells yield
// their formula, other cells their raw value.
func ReadXLSX(r io.Reader, bounds spreadsheet.Bounds) ([]spreadsheet.Source, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var sources []spreadsheet.Source
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			formula, err := f.GetCellFormula(name, cellName)
			if err != nil {
				return nil, fmt.Errorf("read %s!%s: %w", name, cellName, err)
			}

			text := value
			if formula != "" {
				text = "=" + formula
			}
			if text == "" {
				continue
			}
			src, err := source(bounds, rowIdx, colIdx, text)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
	}
	return sources, nil
}

// ImportXLSX replaces the contents of sheet with the first worksheet of a
// workbook
func ImportXLSX(r io.Reader, sheet *spreadsheet.Sheet) error {
	sources, err := ReadXLSX(r, sheet.Bounds())
	if err != nil {
		return err
	}
	return sheet.Load(sources)
}
