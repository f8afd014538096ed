package main

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"galaxysync/internal/runner"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
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

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderSummary(summary *runner.Summary) string {
	var b strings.Builder

	rows := [][]string{
		{"Run", summary.RunID},
		{"Releases", strconv.Itoa(summary.Releases)},
		{"Imported", strconv.Itoa(summary.Imported)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
		{"Failed", strconv.Itoa(summary.Failed)},
	}
	if summary.Collections != nil {
		rows = append(rows,
			[]string{"Collections created", strconv.Itoa(summary.Collections.Created)},
			[]string{"Collections skipped", strconv.Itoa(summary.Collections.Skipped)},
		)
	}
	b.WriteString(renderTable(
		[]string{"Result", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))

	if summary.Collections != nil && len(summary.Collections.Missing) > 0 {
		missing := make([][]string, 0, len(summary.Collections.Missing))
		for _, m := range summary.Collections.Missing {
			id := ""
			if m.CatalogID != 0 {
				id = strconv.FormatInt(m.CatalogID, 10)
			}
			missing = append(missing, []string{m.Tag, m.Title, m.ReleaseKey, id})
		}
		b.WriteString("\n\nUnresolved collection members:\n")
		b.WriteString(renderTable(
			[]string{"Tag", "Title", "Release Key", "Best Match"},
			missing,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
		))
	}

	return b.String()
}
