package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const tablePadding = 2

// table prints left-aligned columns sized by display width, so CJK room
// names line up. Cells are plain text.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	cols := len(t.headers)
	for _, row := range t.rows {
		cols = maxInt(cols, len(row))
	}
	widths := make([]int, cols)
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			widths[i] = maxInt(widths[i], runewidth.StringWidth(cell))
		}
	}
	return widths
}

func (t *table) write(out io.Writer) error {
	widths := t.widths()
	if len(widths) == 0 {
		return nil
	}
	gap := strings.Repeat(" ", tablePadding)

	w := bufio.NewWriter(out)
	line := func(row []string) {
		cells := make([]string, len(widths))
		for i := range widths {
			if i < len(row) {
				cells[i] = row[i]
			}
			if i < len(widths)-1 {
				cells[i] = runewidth.FillRight(cells[i], widths[i])
			}
		}
		_, _ = w.WriteString(strings.TrimRight(strings.Join(cells, gap), " ") + "\n")
	}
	if len(t.headers) > 0 {
		line(t.headers)
	}
	for _, row := range t.rows {
		line(row)
	}
	return w.Flush()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
