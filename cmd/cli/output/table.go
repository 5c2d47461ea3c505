package output

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable prints rows as a pretty table on stdout. Used by whoami; any
// future listing command should go through here so output stays uniform.
func RenderTable(headers []string, rows [][]interface{}) {
	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)

	header := table.Row{}
	for _, h := range headers {
		header = append(header, h)
	}
	w.AppendHeader(header)

	for _, row := range rows {
		w.AppendRow(table.Row(row))
	}

	w.Render()
}
