package fetch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestReadTablesHeaderAndNesting(t *testing.T) {
	doc, err := DocumentFromHTML(`
<div class="GraphOdds">
  <table><tr><th colspan="2">1</th></tr><tr><td>2</td><td>5.3</td></tr><tr><td>3</td><td>12.0</td></tr></table>
  <table><thead><tr><th>馬番</th><th>オッズ</th></tr></thead><tbody><tr><td>4</td><td>
     8.1
  </td></tr></tbody></table>
</div>`)
	require.NoError(t, err)

	tables := ReadTables(doc.Find(".GraphOdds"))
	require.Len(t, tables, 2)

	want := Table{Header: []string{"1", "1"}, Rows: [][]string{{"2", "5.3"}, {"3", "12.0"}}}
	if diff := cmp.Diff(want, tables[0]); diff != "" {
		t.Fatalf("first table mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"馬番", "オッズ"}, tables[1].Header)
	require.Equal(t, [][]string{{"4", "8.1"}}, tables[1].Rows)
	require.Equal(t, 1, tables[1].Column("オッズ"))
	require.Equal(t, -1, tables[1].Column("単勝"))
}

func TestReadTableIgnoresNestedRows(t *testing.T) {
	doc, err := DocumentFromHTML(`<table id="outer"><tr><td>a</td><td><table><tr><td>inner</td></tr></table></td></tr></table>`)
	require.NoError(t, err)

	outer := ReadTable(doc.Find("#outer"))
	require.Len(t, outer.Rows, 1)
	require.Empty(t, outer.Header)
}

func TestTranspose(t *testing.T) {
	got := Transpose([][]string{{"a", "b", "c"}, {"d"}})
	want := [][]string{{"a", "d"}, {"b", ""}, {"c", ""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("transpose mismatch (-want +got):\n%s", diff)
	}
}
