package netkeiba

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/util"
)

const payoutSelector = "table.pay_table_01"

// ParsePayouts reads the two payout tables. A cell holding several tickets
// (複勝, ワイド) separates them with <br>; each line becomes its own Payout.
func ParsePayouts(doc *goquery.Document, raceID string) ([]domain.Payout, error) {
	tables := doc.Find(payoutSelector)
	if tables.Length() == 0 {
		return nil, notFound("payout table", payoutSelector)
	}

	var payouts []domain.Payout
	tables.Slice(0, util.Min(2, tables.Length())).Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cols [][]string
		tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
			cols = append(cols, cellLines(c))
		})
		if len(cols) < 2 || len(cols[0]) == 0 {
			return
		}

		betType := cols[0][0]
		line := func(col, i int) string {
			if col < len(cols) && i < len(cols[col]) {
				return cols[col][i]
			}
			return ""
		}
		for i := range cols[1] {
			amount := line(2, i)
			payouts = append(payouts, domain.Payout{
				RaceID:      raceID,
				BetType:     betType,
				Combination: line(1, i),
				Payout:      amount,
				Amount:      util.Atoi(strings.ReplaceAll(amount, ",", ""), 0),
				Popularity:  line(3, i),
			})
		}
	})
	return payouts, nil
}

// cellLines splits a cell's text on <br> elements.
func cellLines(c *goquery.Selection) []string {
	var lines []string
	var current strings.Builder
	flush := func() {
		lines = append(lines, util.CellText(current.String()))
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.ElementNode && n.Data == "br":
			flush()
		case n.Type == html.TextNode:
			current.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range c.Nodes {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	flush()
	return lines
}
