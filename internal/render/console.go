// Package render turns datasets into console previews and CSV exports.
package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sonnix-labs/pgease/internal/database"
)

// DisplayLimit caps how many rows Preview prints before truncating.
const DisplayLimit = 50

const defaultMaxColWidth = 50

// Preview prints ds as a bordered table. Datasets longer than DisplayLimit
// rows are truncated with a warning pointing the caller at CSV export.
func Preview(w io.Writer, ds *database.Dataset, maxColWidth int) {
	if maxColWidth <= 0 {
		maxColWidth = defaultMaxColWidth
	}

	rows := ds.Rows
	if len(rows) > DisplayLimit {
		fmt.Fprintf(w, "Data is too big! Displaying only the first %d rows. "+
			"To view all data, export it as a CSV with WriteCSV.\n", DisplayLimit)
		rows = rows[:DisplayLimit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(ds.Columns))
	colCfgs := make([]table.ColumnConfig, len(ds.Columns))
	for i, col := range ds.Columns {
		header[i] = col
		colCfgs[i] = table.ColumnConfig{Number: i + 1, WidthMax: maxColWidth}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(colCfgs)

	for _, row := range rows {
		out := make(table.Row, len(row))
		for i, val := range row {
			out[i] = formatValue(val)
		}
		t.AppendRow(out)
	}

	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", ds.NumRows())
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	// Drivers hand back []byte for raw text columns
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
