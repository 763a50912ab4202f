package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// scriptEdit is one entry of a JSON edit list
type scriptEdit struct {
	Cell string `json:"cell"`
	Text string `json:"text"`
}

// parseScript reads edits from a script. a script is either a JSON list of
// {"cell", "text"} objects, with comments and trailing commas allowed, or
// one REF=TEXT edit per line, where # starts a comment line. B1==A1+3 sets
// B1 to the formula =A1+3.
func parseScript(name string, data []byte) ([]spreadsheet.Source, error) {
	ext := strings.ToLower(filepath.Ext(name))
	trimmed := bytes.TrimSpace(data)
	if ext == ".json" || ext == ".jsonc" || bytes.HasPrefix(trimmed, []byte("[")) {
		return parseJSONScript(data)
	}
	return parseLineScript(data)
}

func parseJSONScript(data []byte) ([]spreadsheet.Source, error) {
	var edits []scriptEdit
	if err := json.Unmarshal(jsonc.ToJSON(data), &edits); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	sources := make([]spreadsheet.Source, 0, len(edits))
	for i, e := range edits {
		if e.Cell == "" {
			return nil, fmt.Errorf("parsing script: edit %d has no cell", i+1)
		}
		sources = append(sources, spreadsheet.Source{Ref: e.Cell, Text: e.Text})
	}
	return sources, nil
}

func parseLineScript(data []byte) ([]spreadsheet.Source, error) {
	var sources []spreadsheet.Source
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ref, text, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: want REF=TEXT, got %q", lineNo, line)
		}
		sources = append(sources, spreadsheet.Source{
			Ref:  strings.TrimSpace(ref),
			Text: text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sources, nil
}
