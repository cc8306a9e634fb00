package odds

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
	"github.com/annko/keiba-bot-go/internal/util"
)

var oddsNumber = regexp.MustCompile(`^\d+(\.\d+)?`)

// parseOdds reads the leading number of an odds cell. Place odds show a range
// ("1.2 - 1.5"); the lower bound is kept. 取消 and ---.- are not numeric.
func parseOdds(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	m := oddsNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseHorse(s string) (int, bool) {
	n := util.Atoi(s, -1)
	return n, n > 0
}

func compactHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(h, " ", ""), "　", "")
	}
	return out
}

func columnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}

// ReshapeWin reads horse number and odds columns from a single-horse table.
// oddsColumns are tried in order (単勝 on JRA, オッズ on netkeiba).
func ReshapeWin(table fetch.Table, oddsColumns ...string) []domain.OddsRow {
	header := compactHeader(table.Header)
	horseCol := columnIndex(header, "馬番")
	oddsCol := columnIndex(header, oddsColumns...)
	if horseCol < 0 || oddsCol < 0 {
		return nil
	}

	rows := make([]domain.OddsRow, 0, len(table.Rows))
	for _, r := range table.Rows {
		first, ok := parseHorse(cell(r, horseCol))
		if !ok {
			continue
		}
		raw := cell(r, oddsCol)
		odds, _ := parseOdds(raw)
		rows = append(rows, domain.OddsRow{First: first, Odds: odds, Raw: raw})
	}
	return rows
}

// pairRows reads (partner, odds) rows of one table.
func pairRows(table fetch.Table, first int) []domain.OddsRow {
	rows := make([]domain.OddsRow, 0, len(table.Rows))
	for _, r := range table.Rows {
		second, ok := parseHorse(cell(r, 0))
		if !ok {
			continue
		}
		raw := cell(r, 1)
		odds, _ := parseOdds(raw)
		rows = append(rows, domain.OddsRow{First: first, Second: second, Odds: odds, Raw: raw})
	}
	return rows
}

// ReshapePairsByIndex treats table i as the rows for first horse i+1. With dropSame
// the diagonal (First == Second) is removed, as exacta grids include it.
func ReshapePairsByIndex(tables []fetch.Table, dropSame bool) []domain.OddsRow {
	var rows []domain.OddsRow
	for i, t := range tables {
		for _, r := range pairRows(t, i+1) {
			if dropSame && r.First == r.Second {
				continue
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// ReshapePairsByHeader takes the first horse from each table's header cell.
func ReshapePairsByHeader(tables []fetch.Table) []domain.OddsRow {
	var rows []domain.OddsRow
	for _, t := range tables {
		first, ok := parseHorse(cell(t.Header, 0))
		if !ok {
			continue
		}
		rows = append(rows, pairRows(t, first)...)
	}
	return rows
}

// fieldSize is the largest horse number in the first column of the first table.
func fieldSize(tables []fetch.Table) int {
	if len(tables) == 0 {
		return 0
	}
	n := 0
	for _, r := range tables[0].Rows {
		if h, ok := parseHorse(cell(r, 0)); ok {
			n = util.Max(n, h)
		}
	}
	return n
}

// assignLegs walks tables alongside the (first, second) pairs and reads (third,
// odds) rows. Rows without numeric odds are dropped, then duplicates.
func assignLegs(tables []fetch.Table, pairs [][]int) []domain.OddsRow {
	var rows []domain.OddsRow
	for i, pair := range pairs {
		if i >= len(tables) {
			break
		}
		for _, r := range tables[i].Rows {
			third, ok := parseHorse(cell(r, 0))
			if !ok {
				continue
			}
			raw := cell(r, 1)
			odds, ok := parseOdds(raw)
			if !ok {
				continue
			}
			rows = append(rows, domain.OddsRow{First: pair[0], Second: pair[1], Third: third, Odds: odds, Raw: raw})
		}
	}
	return dedupe(rows)
}

// ReshapeTrioByCombination maps tables onto combinations(1..n-1, 2) in order.
func ReshapeTrioByCombination(tables []fetch.Table) []domain.OddsRow {
	n := fieldSize(tables)
	if n < 3 {
		return nil
	}
	return assignLegs(tables, util.Combinations(util.Sequence(n-1), 2))
}

// ReshapeTrifectaByPermutation maps tables onto permutations(1..n, 2) in order.
func ReshapeTrifectaByPermutation(tables []fetch.Table) []domain.OddsRow {
	n := fieldSize(tables)
	if n < 3 {
		return nil
	}
	return assignLegs(tables, util.Permutations(util.Sequence(n), 2))
}

// ReshapeAxis reads axis-horse pages: page p is axis horse p+1, each table header
// names the second horse and rows carry (third, odds). With sortTriple each
// combination is sorted and duplicates removed, as trio tickets are unordered.
func ReshapeAxis(pages [][]fetch.Table, sortTriple bool) []domain.OddsRow {
	var rows []domain.OddsRow
	for p, tables := range pages {
		for _, t := range tables {
			for _, r := range ReshapePairsByHeader([]fetch.Table{t}) {
				row := domain.OddsRow{First: p + 1, Second: r.First, Third: r.Second, Odds: r.Odds, Raw: r.Raw}
				if sortTriple {
					legs := []int{row.First, row.Second, row.Third}
					sort.Ints(legs)
					row.First, row.Second, row.Third = legs[0], legs[1], legs[2]
				}
				rows = append(rows, row)
			}
		}
	}
	if sortTriple {
		return dedupe(rows)
	}
	return rows
}

func dedupe(rows []domain.OddsRow) []domain.OddsRow {
	seen := make(map[domain.OddsRow]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
