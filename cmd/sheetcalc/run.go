package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/internal/export"
	"github.com/vogtb/go-spreadsheet/internal/store"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

var (
	runFrom  string
	runSave  string
	runQuiet bool
	viewRows uint32
	viewCols uint32
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Apply a script of edits and print the result",
		Long: `run applies each edit of a script in order and prints its status.
rejected edits leave the sheet unchanged and the script continues.

scripts hold one REF=TEXT edit per line (B1==A1+3 sets a formula) or a JSON
list of {"cell": "A1", "text": "5"} objects. "-" reads from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runScript,
	}
	cmd.Flags().StringVar(&runFrom, "from", "", "Start from a stored workbook")
	cmd.Flags().StringVar(&runSave, "save", "", "Store the result under this name")
	cmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Only print rejected edits")
	addViewFlags(cmd)
	return cmd
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&viewRows, "rows", 10, "Rows shown on a terminal")
	cmd.Flags().Uint32Var(&viewCols, "cols", 10, "Columns shown on a terminal")
}

func runScript(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	edits, err := parseScript(args[0], data)
	if err != nil {
		return err
	}

	sheet := newSheet()
	var st *store.Store
	if runFrom != "" || runSave != "" {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}
	if runFrom != "" {
		if err := st.Load(runFrom, sheet); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if rejected := applyEdits(out, sheet, edits, runQuiet); rejected > 0 {
		logger.Warn("edits rejected", "count", rejected, "total", len(edits))
	}
	if err := printSheet(out, sheet, viewRows, viewCols); err != nil {
		return err
	}

	if runSave != "" {
		if _, err := st.Save(runSave, sheet); err != nil {
			return err
		}
		logger.Info("workbook saved", "name", runSave, "cells", sheet.Len())
	}
	return nil
}

// applyEdits applies edits in order, printing the status of each. it
// returns the number of rejected edits.
func applyEdits(w io.Writer, sheet *spreadsheet.Sheet, edits []spreadsheet.Source, quiet bool) int {
	rejected := 0
	for _, edit := range edits {
		err := sheet.SetCell(edit.Ref, edit.Text)
		status := spreadsheet.StatusOf(err)
		if status != spreadsheet.StatusOK {
			rejected++
		}
		if quiet && status == spreadsheet.StatusOK {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", strings.ToUpper(strings.TrimSpace(edit.Ref)), status)
	}
	return rejected
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// loadFile fills sheet from a CSV, XLSX or script file. CSV and XLSX files
// replace the sheet as a whole; scripts are applied edit by edit.
func loadFile(w io.Writer, sheet *spreadsheet.Sheet, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return export.ImportCSV(f, sheet)
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return export.ImportXLSX(f, sheet)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		edits, err := parseScript(path, data)
		if err != nil {
			return err
		}
		if rejected := applyEdits(w, sheet, edits, true); rejected > 0 {
			logger.Warn("edits rejected", "count", rejected, "total", len(edits))
		}
		return nil
	}
}
