package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// WriteCSV writes the sheet as CSV
func WriteCSV(w io.Writer, sheet *spreadsheet.Sheet, mode Mode) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(grid(sheet, mode)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV reads a CSV file of cell text, as written by WriteCSV in
// ModeFormulas. empty fields are skipped; rows may differ in length.
func ReadCSV(r io.Reader, bounds spreadsheet.Bounds) ([]spreadsheet.Source, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var sources []spreadsheet.Source
	for row := 0; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		for col, text := range record {
			if text == "" {
				continue
			}
			src, err := source(bounds, row, col, text)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
	}
	return sources, nil
}

// ImportCSV replaces the contents of sheet with a CSV file
func ImportCSV(r io.Reader, sheet *spreadsheet.Sheet) error {
	sources, err := ReadCSV(r, sheet.Bounds())
	if err != nil {
		return err
	}
	return sheet.Load(sources)
}
