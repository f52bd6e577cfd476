package main

import (
	"strconv"
	"time"

	"github.com/alkime/voicecollector/internal/dataset"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderRecords(recs []dataset.Record) string {
	t := newTable("Recorded", "Drug", "Gender", "Pharmacy", "Length", "Key")

	for _, r := range recs {
		t.Row(
			r.Timestamp.Local().Format(time.DateTime),
			r.Drug,
			r.Gender,
			r.Pharmacy,
			r.Duration.Round(100*time.Millisecond).String(),
			r.Key,
		)
	}

	return t.Render()
}

func renderCounts(counts []dataset.Count) string {
	t := newTable("Drug", "Gender", "Recordings")

	total := 0
	for _, c := range counts {
		t.Row(c.Drug, c.Gender, strconv.Itoa(c.Recordings))
		total += c.Recordings
	}

	t.Row("", "total", strconv.Itoa(total))

	return t.Render()
}
