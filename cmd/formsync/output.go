package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

const (
	formatAuto  = ""
	formatJSON  = "json"
	formatTable = "table"
)

func validateFormat(format string) error {
	switch format {
	case formatAuto, formatJSON, formatTable:
		return nil
	default:
		return withCode(exitUsage, fmt.Errorf("--format must be %s or %s", formatTable, formatJSON))
	}
}

// useTable reports whether summaries are rendered as tables: always with
// --format table, and on an interactive stdout when no format is given.
func useTable(format string) bool {
	if format == formatAuto {
		return isatty.IsTerminal(os.Stdout.Fd())
	}
	return format == formatTable
}

func writeJSONLine(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitDB, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w)
	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	table.Header(head...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return withCode(exitDB, fmt.Errorf("render table: %w", err))
		}
	}
	if err := table.Render(); err != nil {
		return withCode(exitDB, fmt.Errorf("render table: %w", err))
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func trimSpace(s string) string { return strings.TrimSpace(s) }
