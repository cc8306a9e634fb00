package netkeiba

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
	"github.com/annko/keiba-bot-go/internal/util"
)

var raceIDPattern = regexp.MustCompile(`[0-9]{12}`)

// ParseRaceIDList collects every 12-digit id linked from div.race_list.fc. A page
// without the container (no racing that day) yields an empty list.
func ParseRaceIDList(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	doc.Find("div.race_list.fc a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		for _, id := range raceIDPattern.FindAllString(href, -1) {
			seen[id] = struct{}{}
		}
	})

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Scraper) RaceIDsByDate(ctx context.Context, date time.Time) ([]string, error) {
	url := fmt.Sprintf(constants.URLs.RaceList, date.Format("20060102"))
	doc, err := s.fetcher.Document(ctx, url, fetch.CharsetEUCJP)
	if err != nil {
		return nil, err
	}
	return ParseRaceIDList(doc), nil
}

// RaceIDsByMonth walks every day of the month. Pacing comes from the fetcher's
// limiter.
func (s *Scraper) RaceIDsByMonth(ctx context.Context, year int, month time.Month) ([]string, error) {
	var ids []string
	for _, day := range util.DaysInMonth(year, month) {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		dayIDs, err := s.RaceIDsByDate(ctx, day)
		if err != nil {
			return ids, err
		}
		if len(dayIDs) > 0 {
			s.logger.Debug("Collected race ids",
				zap.String("date", day.Format("2006-01-02")),
				zap.Int("count", len(dayIDs)),
			)
		}
		ids = append(ids, dayIDs...)
	}
	return ids, nil
}

func (s *Scraper) RaceIDsByYear(ctx context.Context, year int) ([]string, error) {
	var ids []string
	for m := time.January; m <= time.December; m++ {
		monthIDs, err := s.RaceIDsByMonth(ctx, year, m)
		ids = append(ids, monthIDs...)
		if err != nil {
			return ids, err
		}
	}
	return ids, nil
}
