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
	"github.com/annko/keiba-bot-go/pkg/errors"
)

const (
	databaseTableSelector = "table.race_table_01"
	ownerColumn           = 19
)

// ParseDatabaseRows reads table.race_table_01 of a db.netkeiba.com race page.
// Premium columns are read only when premium is set since anonymous pages carry
// them as "**" placeholders.
func ParseDatabaseRows(doc *goquery.Document, raceID string, premium bool) ([]domain.DatabaseRow, error) {
	table, err := requireOne(doc.Selection, databaseTableSelector, "race database table")
	if err != nil {
		return nil, err
	}

	trs := table.Find("tr")
	if trs.Length() < 2 {
		return nil, notFound("race database rows", databaseTableSelector)
	}

	columns := map[string]int{}
	trs.First().Find("th, td").Each(func(i int, c *goquery.Selection) {
		columns[util.CellText(c.Text())] = i
	})

	rows := make([]domain.DatabaseRow, 0, trs.Length()-1)
	trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		col := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= cells.Length() {
				return ""
			}
			return util.CellText(cells.Eq(idx).Text())
		}

		row := domain.DatabaseRow{
			RaceID:      raceID,
			Rank:        col("着順"),
			Waku:        col("枠番"),
			HorseNum:    col("馬番"),
			HorseName:   col("馬名"),
			SexAge:      col("性齢"),
			Burden:      col("斤量"),
			Jockey:      col("騎手"),
			Time:        col("タイム"),
			Margin:      col("着差"),
			Last3F:      col("上り"),
			WinOdds:     col("単勝"),
			Popularity:  col("人気"),
			HorseWeight: col("馬体重"),
			Prize:       col("賞金(万円)"),
			HorseID:     linkID(tr, "/horse"),
			JockeyID:    linkID(tr, "/jockey"),
			TrainerID:   linkID(tr, "/trainer"),
		}
		if premium {
			row.TimeIndex = col("ﾀｲﾑ指数")
			row.TrainingTime = col("調教ﾀｲﾑ")
			row.StableComment = col("厩舎ｺﾒﾝﾄ")
			row.Remarks = col("備考")
		}
		if cells.Length() > ownerColumn {
			if href, ok := cells.Eq(ownerColumn).Find("a").First().Attr("href"); ok {
				row.OwnerID = util.FirstNumber(href)
			}
		}
		rows = append(rows, row)
	})
	return rows, nil
}

func linkID(row *goquery.Selection, prefix string) string {
	href, ok := row.Find(fmt.Sprintf(`a[href^="%s"]`, prefix)).First().Attr("href")
	if !ok {
		return ""
	}
	return util.FirstNumber(href)
}

// Database fetches the db.netkeiba.com page once and extracts every product on it.
// Corner and lap tables are missing on older races and come back empty.
func (s *Scraper) Database(ctx context.Context, id domain.RaceID) (*domain.RaceDatabase, error) {
	url := fmt.Sprintf(constants.URLs.Database, id.DatabaseCode())
	doc, err := s.fetcher.Document(ctx, url, fetch.CharsetEUCJP)
	if err != nil {
		return nil, err
	}

	raceID := id.String()
	db := &domain.RaceDatabase{}

	if db.Rows, err = ParseDatabaseRows(doc, raceID, s.fetcher.LoggedIn()); err != nil {
		return nil, err
	}
	info, err := ParseRaceInfo(doc, id)
	if err != nil {
		return nil, err
	}
	db.Info = *info

	if db.Payouts, err = ParsePayouts(doc, raceID); err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if db.Corners, err = ParseCorners(doc, raceID); err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if db.Laps, err = ParseLaps(doc, raceID); err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	s.logger.Debug("Parsed race database",
		zap.String("race_id", raceID),
		zap.Int("rows", len(db.Rows)),
		zap.Int("payouts", len(db.Payouts)),
	)
	return db, nil
}
