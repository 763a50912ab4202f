package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func TestParseScript(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want []spreadsheet.Source
	}{
		{
			name: "lines",
			file: "edits.txt",
			data: "# totals\nA1=5\n\nB1==A1+3\n  c1 = hello \n",
			want: []spreadsheet.Source{{Ref: "A1", Text: "5"}, {Ref: "B1", Text: "=A1+3"}, {Ref: "c1", Text: " hello"}},
		},
		{
			name: "jsonc",
			file: "edits.jsonc",
			data: `[
				// first cell
				{"cell": "A1", "text": "5"},
				{"cell": "B1", "text": "=A1*2"}, /* trailing comma */
			]`,
			want: []spreadsheet.Source{{Ref: "A1", Text: "5"}, {Ref: "B1", Text: "=A1*2"}},
		},
		{
			name: "json by content",
			file: "-",
			data: `  [{"cell": "C3", "text": ""}]`,
			want: []spreadsheet.Source{{Ref: "C3", Text: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScript(tt.file, []byte(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("edit %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseScriptErrors(t *testing.T) {
	for _, data := range []string{"A1 5\n", `[{"text": "5"}]`, `[{"cell": }]`} {
		if _, err := parseScript("x", []byte(data)); err == nil {
			t.Errorf("parseScript(%q): expected an error", data)
		}
	}
}

func TestPrintGrid(t *testing.T) {
	sheet := spreadsheet.NewSheet()
	sheet.SetCell("A1", "1")
	sheet.SetCell("B2", "=A1/0")
	sheet.SetCell("A2", "a very long label")

	var buf bytes.Buffer
	if err := printGrid(&buf, sheet, 2, 2); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], pad("")+" "+pad("A")) {
		t.Errorf("header %q", lines[0])
	}
	if !strings.Contains(lines[2], "a very lo~") || !strings.Contains(lines[2], "#DIV/0!") {
		t.Errorf("row 2 %q", lines[2])
	}
}

// execute runs the command line against a fresh database
func execute(t *testing.T, dir string, args ...string) string {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--db", filepath.Join(dir, "sheets.db"),
		"--log-level", "error",
	}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestRunSaveExport(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "edits.txt")
	if err := os.WriteFile(script, []byte("A1=5\nB1==A1*2\nA1==B1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, dir, "run", script, "--save", "demo")
	want := "A1: ok\nB1: ok\nA1: cycle detected\n5,10\n"
	if out != want {
		t.Errorf("run output %q, want %q", out, want)
	}

	if out := execute(t, dir, "list"); !strings.Contains(out, "demo") {
		t.Errorf("list output %q", out)
	}

	csvPath := filepath.Join(dir, "demo.csv")
	execute(t, dir, "export", "demo", csvPath)
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "5,=A1*2\n" {
		t.Errorf("exported %q", data)
	}

	execute(t, dir, "import", "copy", csvPath)
	if out := execute(t, dir, "load", "copy"); out != "5,10\n" {
		t.Errorf("load output %q", out)
	}

	execute(t, dir, "delete", "copy")
	if out := execute(t, dir, "list"); strings.Contains(out, "copy") {
		t.Errorf("deleted workbook still listed: %q", out)
	}
}
