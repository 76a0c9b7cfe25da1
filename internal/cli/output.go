package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// OutputFormat represents the supported output formats for CLI commands.
// This allows users to choose how they want to receive command results.
type OutputFormat string

const (
	// OutputFormatTable formats output as a rich table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON formats output as raw JSON data
	OutputFormatJSON OutputFormat = "json"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
// Returns nil if valid, or an error with a helpful message listing valid formats.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json)", format)
	}
}

// NewTable creates a table writer with the standard styling.
func NewTable(output io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(output)
	t.SetStyle(table.StyleRounded)
	return t
}

// HeaderRow builds a highlighted header row from column names.
func HeaderRow(columns ...string) table.Row {
	row := make(table.Row, len(columns))
	for i, col := range columns {
		row[i] = text.FgHiCyan.Sprint(col)
	}
	return row
}

// RenderJSON writes v as indented JSON.
func RenderJSON(output io.Writer, v any) error {
	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
