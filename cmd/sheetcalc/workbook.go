package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/internal/export"
)

func newSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "save <name> <file>",
		Aliases: []string{"import"},
		Short:   "Store a CSV, XLSX or script file as a workbook",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			sheet := newSheet()
			if err := loadFile(cmd.OutOrStdout(), sheet, path); err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			wb, err := st.Save(name, sheet)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s: %d cells, %d bytes (%s), digest %s\n",
				wb.Name, wb.Cells, wb.Size, wb.Compression, wb.Digest)
			return nil
		},
	}
}

func newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Print a stored workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sheet := newSheet()
			if err := st.Load(args[0], sheet); err != nil {
				return err
			}
			return printSheet(cmd.OutOrStdout(), sheet, viewRows, viewCols)
		},
	}
	addViewFlags(cmd)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored workbooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			workbooks, err := st.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCELLS\tSIZE\tCOMPRESSION\tUPDATED")
			for _, wb := range workbooks {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
					wb.Name, wb.Cells, wb.Size, wb.Compression, wb.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Delete(args[0])
		},
	}
}

func newExportCommand() *cobra.Command {
	var modeName string
	cmd := &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a stored workbook to a CSV or XLSX file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := export.ParseMode(modeName)
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sheet := newSheet()
			if err := st.Load(args[0], sheet); err != nil {
				return err
			}

			path := args[1]
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()

			switch strings.ToLower(filepath.Ext(path)) {
			case ".xlsx":
				err = export.WriteXLSX(f, sheet, mode)
			case ".csv":
				err = export.WriteCSV(f, sheet, mode)
			default:
				return fmt.Errorf("unsupported export format %q: want .csv or .xlsx", filepath.Ext(path))
			}
			if err != nil {
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&modeName, "mode", "formulas", "What each cell carries: values or formulas")
	return cmd
}
