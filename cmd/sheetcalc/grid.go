package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vogtb/go-spreadsheet/internal/export"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"golang.org/x/term"
)

const cellWidth = 10

// printSheet shows the top-left corner of the sheet as a grid when stdout
// is a terminal and writes every value as CSV otherwise
func printSheet(w io.Writer, sheet *spreadsheet.Sheet, rows, cols uint32) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			cols = min(cols, uint32(max(1, width/(cellWidth+1)-1)))
		}
		return printGrid(w, sheet, rows, cols)
	}
	return export.WriteCSV(w, sheet, export.ModeValues)
}

// printGrid renders rows x cols cells starting at A1 with headers
func printGrid(w io.Writer, sheet *spreadsheet.Sheet, rows, cols uint32) error {
	bounds := sheet.Bounds()
	rows = min(rows, bounds.Rows)
	cols = min(cols, bounds.Cols)

	var b strings.Builder
	b.WriteString(pad(""))
	for col := uint32(1); col <= cols; col++ {
		b.WriteString(" ")
		b.WriteString(pad(spreadsheet.ColumnName(col)))
	}
	b.WriteString("\n")

	for row := uint32(1); row <= rows; row++ {
		b.WriteString(pad(fmt.Sprint(row)))
		for col := uint32(1); col <= cols; col++ {
			id, err := spreadsheet.Encode(row, col, bounds)
			if err != nil {
				return err
			}
			b.WriteString(" ")
			b.WriteString(pad(sheet.Get(id).String()))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// pad fits s into one grid column
func pad(s string) string {
	if len(s) > cellWidth {
		return s[:cellWidth-1] + "~"
	}
	return fmt.Sprintf("%-*s", cellWidth, s)
}
