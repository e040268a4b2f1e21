package report

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Sheet is a rendered report: a fixed-width header row plus data rows of
// the same width.
type Sheet struct {
	Header []string
	Rows   [][]string
}

func (s Sheet) writer() table.Writer {
	columns := len(s.Header)
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range s.Header {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range s.Rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw
}

// RenderTable produces the text table shown to operators.
func (s Sheet) RenderTable() string {
	if len(s.Header) == 0 {
		return ""
	}
	return s.writer().Render()
}

// RenderCSV produces the spreadsheet download body.
func (s Sheet) RenderCSV() string {
	if len(s.Header) == 0 {
		return ""
	}
	return s.writer().RenderCSV()
}
