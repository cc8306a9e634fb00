package fetch

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/annko/keiba-bot-go/internal/util"
)

// Table is an HTML table flattened to text. Header is empty when the table has
// neither a <thead> nor a leading row of <th> cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the header named name, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadTables flattens every table inside sel (sel itself included when it is a
// table). Nested tables are read separately and do not leak rows into their parent.
func ReadTables(sel *goquery.Selection) []Table {
	var tables []Table
	sel.Find("table").AddSelection(sel.Filter("table")).Each(func(_ int, t *goquery.Selection) {
		tables = append(tables, ReadTable(t))
	})
	return tables
}

func ReadTable(t *goquery.Selection) Table {
	var table Table

	rows := t.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(t)
	})

	rows.Each(func(i int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		values := rowText(cells)

		inHead := tr.ParentFiltered("thead").Length() > 0
		allTH := cells.Length() > 0 && cells.Length() == cells.Filter("th").Length()
		if inHead || (i == 0 && allTH && len(table.Rows) == 0) {
			table.Header = values
			return
		}
		if len(values) > 0 {
			table.Rows = append(table.Rows, values)
		}
	})
	return table
}

// rowText expands colspan so that header positions line up with body cells.
func rowText(cells *goquery.Selection) []string {
	var values []string
	cells.Each(func(_ int, c *goquery.Selection) {
		text := util.CellText(c.Text())
		span := 1
		if attr, ok := c.Attr("colspan"); ok {
			if n, err := strconv.Atoi(attr); err == nil && n > 1 {
				span = n
			}
		}
		for j := 0; j < span; j++ {
			values = append(values, text)
		}
	})
	return values
}

// Transpose swaps rows and columns, padding short rows with "".
func Transpose(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		width = util.Max(width, len(r))
	}
	out := make([][]string, width)
	for c := 0; c < width; c++ {
		out[c] = make([]string, len(rows))
		for r, row := range rows {
			if c < len(row) {
				out[c][r] = row[c]
			}
		}
	}
	return out
}
