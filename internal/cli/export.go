package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how command output is written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML, "yml", FormatCSV:
		if f == "yml" {
			return FormatYAML, nil
		}
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, yaml or csv)", s)
	}
}

// Structured reports whether the format bypasses the styled table output.
func (f Format) Structured() bool {
	return f == FormatJSON || f == FormatYAML
}

// WriteStructured encodes v as JSON or YAML.
func WriteStructured(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %s is not structured", f)
	}
}

// WriteCSV writes a header and rows as CSV, without styling.
func WriteCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) == 1 && row[0] == "---" {
			continue
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes t in format f. Structured formats are handled by
// WriteStructured.
func WriteTable(w io.Writer, f Format, t Table) error {
	if f == FormatCSV {
		return WriteCSV(w, t.Headers, t.Rows)
	}
	_, err := io.WriteString(w, RenderTable(t))
	return err
}
