package netkeiba

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
)

// UmabashiraLabels names the first twenty rows of a jiro8 horse column.
var UmabashiraLabels = []string{
	"枠番", "馬番", "馬名", "性齢", "斤量", "騎手", "調教師", "着順",
	"オッズ(人気)", "タイム", "ペース脚質3F", "コーナー順位", "体重(増減)",
	"先行指数", "ペース指数", "上がり指数", "スピード指数",
	"本紙)独自指数", "SP指数補正後", "前走の指数",
}

const umabashiraSelector = "table.c1"

// umabashiraColumns returns one slice per horse: the table is laid out with horses
// as columns and a trailing label column, which is dropped.
func umabashiraColumns(doc *goquery.Document) ([][]string, error) {
	sel, err := requireOne(doc.Selection, umabashiraSelector, "umabashira table")
	if err != nil {
		return nil, err
	}
	table := fetch.ReadTable(sel)
	grid := table.Rows
	if len(table.Header) > 0 {
		grid = append([][]string{table.Header}, grid...)
	}
	return fetch.Transpose(grid), nil
}

// ParseUmabashiraGrid returns the transposed table without relabelling.
func ParseUmabashiraGrid(doc *goquery.Document) (*domain.Grid, error) {
	columns, err := umabashiraColumns(doc)
	if err != nil {
		return nil, err
	}
	return &domain.Grid{Rows: columns}, nil
}

// ParseUmabashira returns the index view: race id, horse number and the eight
// index fields of the current race.
func ParseUmabashira(doc *goquery.Document, raceID string) ([]domain.UmabashiraRow, error) {
	columns, err := umabashiraColumns(doc)
	if err != nil {
		return nil, err
	}
	if len(columns) < 2 {
		return nil, notFound("umabashira columns", umabashiraSelector)
	}

	rows := make([]domain.UmabashiraRow, 0, len(columns)-1)
	for _, col := range columns[:len(columns)-1] {
		field := func(i int) string {
			if i < len(col) && i < len(UmabashiraLabels) {
				return col[i]
			}
			return ""
		}
		rows = append(rows, domain.UmabashiraRow{
			RaceID:          raceID,
			HorseNum:        field(1),
			PaceStyle3F:     field(10),
			CornerOrder:     field(11),
			LeadIndex:       field(13),
			PaceIndex:       field(14),
			Last3FIndex:     field(15),
			SpeedIndex:      field(16),
			PaperIndex:      field(17),
			AdjustedSPIndex: field(18),
		})
	}
	return rows, nil
}

func (s *Scraper) umabashiraDoc(ctx context.Context, id domain.RaceID) (*goquery.Document, error) {
	return s.fetcher.Document(ctx, fmt.Sprintf(constants.URLs.Umabashira, id.UmabashiraCode()), fetch.CharsetCP932)
}

func (s *Scraper) Umabashira(ctx context.Context, id domain.RaceID) ([]domain.UmabashiraRow, error) {
	doc, err := s.umabashiraDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	return ParseUmabashira(doc, id.String())
}

func (s *Scraper) UmabashiraGrid(ctx context.Context, id domain.RaceID) (*domain.Grid, error) {
	doc, err := s.umabashiraDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	return ParseUmabashiraGrid(doc)
}
