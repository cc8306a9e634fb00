package netkeiba

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

const calendarListPrefix = "../top/race_list.html?"

// ParseCalendarLink finds the day's race-list link on the monthly calendar and
// rewrites it to the smartphone race list filtered to one racecourse.
func ParseCalendarLink(doc *goquery.Document, date time.Time, racecourse domain.Racecourse) (string, error) {
	needle := calendarListPrefix + "kaisai_date=" + date.Format("20060102")

	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if strings.Contains(h, needle) {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return "", errors.NewNotFoundError("no meeting on "+date.Format("2006-01-02"), "calendar")
	}

	url := strings.Replace(href, calendarListPrefix, constants.URLs.SPRaceList, 1)
	return fmt.Sprintf("%s&jyo_cd=%02d", url, racecourse.Code), nil
}

// ParseRaceListID picks the race whose number label reads "{n}R" and returns the id
// carried by its MyRaceCheck toggle.
func ParseRaceListID(doc *goquery.Document, raceNum int) (domain.RaceID, error) {
	label := fmt.Sprintf("%dR", raceNum)

	var rawID string
	doc.Find(".Race_Num.Race_Fixed").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Find("span").First().Text()) != label {
			return true
		}
		if id, ok := s.Find("span.MyRaceCheck").Attr("id"); ok {
			rawID = strings.TrimPrefix(id, "myrace_")
			return false
		}
		return true
	})
	if rawID == "" {
		return domain.RaceID{}, errors.NewNotFoundError("race "+label+" not in race list", "race_list")
	}
	return domain.ParseRaceID(rawID)
}

// ResolveByDate maps (date, racecourse, race number) to an identifier through the
// netkeiba calendar.
func (s *Scraper) ResolveByDate(ctx context.Context, date time.Time, racecourse domain.Racecourse, raceNum int) (domain.RaceID, error) {
	calendarURL := fmt.Sprintf(constants.URLs.Calendar, date.Year(), int(date.Month()))
	doc, err := s.fetcher.Document(ctx, calendarURL, fetch.CharsetAuto)
	if err != nil {
		return domain.RaceID{}, err
	}

	listURL, err := ParseCalendarLink(doc, date, racecourse)
	if err != nil {
		return domain.RaceID{}, err
	}
	s.logger.Debug("Resolved race list", zap.String("url", listURL))

	listDoc, err := s.fetcher.Document(ctx, listURL, fetch.CharsetAuto)
	if err != nil {
		return domain.RaceID{}, err
	}
	return ParseRaceListID(listDoc, raceNum)
}
