package netkeiba

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
	"github.com/annko/keiba-bot-go/internal/util"
)

const resultSelector = "#tab_ResultSelect_1_con"

// ParseResult reads the finisher table of a race.netkeiba.com result page.
func ParseResult(doc *goquery.Document) ([]domain.ResultEntry, error) {
	container, err := requireOne(doc.Selection, resultSelector, "race result")
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ResultEntry, 0, 18)
	container.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, resultCellText(td))
		})
		if len(cells) == 0 {
			return
		}
		entries = append(entries, resultEntry(cells))
	})
	return entries, nil
}

// Empty cells fall back to the alt text of an image (枠 colours are images).
func resultCellText(td *goquery.Selection) string {
	if text := util.CellText(td.Text()); text != "" {
		return text
	}
	if alt, ok := td.Find("img").First().Attr("alt"); ok {
		return alt
	}
	return ""
}

func resultEntry(cells []string) domain.ResultEntry {
	at := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return domain.ResultEntry{
		Rank:     at(0),
		Waku:     at(1),
		HorseNum: at(2),
		Name:     at(3),
		Age:      at(4),
		Weight:   at(5),
		Jockey:   at(6),
		Time:     at(7),
		Sa:       at(8),
		Ninki:    at(9),
		Odds:     at(10),
	}
}

func (s *Scraper) Result(ctx context.Context, id domain.RaceID) ([]domain.ResultEntry, error) {
	url := fmt.Sprintf(constants.URLs.RaceResult, id)
	doc, err := s.fetcher.Document(ctx, url, fetch.CharsetEUCJP)
	if err != nil {
		return nil, err
	}

	entries, err := ParseResult(doc)
	if err != nil {
		s.logger.Debug("Result table missing", zap.String("race_id", id.String()))
		return nil, err
	}
	return entries, nil
}
