package netkeiba

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
	"github.com/annko/keiba-bot-go/internal/util"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

var (
	sexPattern       = regexp.MustCompile(`[セ牡牝]`)
	pedigreeLink     = regexp.MustCompile(`/horse/[0-9a-zA-Z]{10}`)
	generationSpans  = []string{"16", "8", "4", "2"}
	horseResultsSel  = "table.db_h_race_results"
	pedigreeTableSel = "table.blood_table"
)

// ParseHorseResults reads a horse's past performances keyed by column header.
func ParseHorseResults(doc *goquery.Document, horseID string) (*domain.HorseResults, error) {
	sel, err := requireOne(doc.Selection, horseResultsSel, "horse results")
	if err != nil {
		return nil, err
	}

	table := fetch.ReadTable(sel)
	results := &domain.HorseResults{HorseID: horseID, Columns: table.Header}

	bodyRows := sel.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Find("td").Length() > 0
	})
	for i, row := range table.Rows {
		record := domain.HorseRaceRecord{HorseID: horseID, Fields: make(map[string]string, len(row))}
		for j, value := range row {
			if j < len(table.Header) {
				record.Fields[table.Header[j]] = value
			}
		}
		if i < bodyRows.Length() {
			if href, ok := bodyRows.Eq(i).Find(`a[href*="/race/"]`).First().Attr("href"); ok {
				record.RaceID = raceIDPattern.FindString(href)
			}
		}
		results.Records = append(results.Records, record)
	}
	return results, nil
}

func ParseSex(doc *goquery.Document) (string, error) {
	p, err := requireOne(doc.Selection, "p.txt_01", "horse profile")
	if err != nil {
		return "", err
	}
	sex := sexPattern.FindString(p.Text())
	if sex == "" {
		return "", errors.NewScrapeError("sex could not be determined", "", "p.txt_01", nil)
	}
	return sex, nil
}

// ParseBirthday reads the first row, second cell of the profile table.
func ParseBirthday(doc *goquery.Document) (string, error) {
	table, err := requireOne(doc.Selection, "div.db_prof_area_02 table", "horse profile table")
	if err != nil {
		return "", err
	}
	cell := table.Find("tr").First().Find("th, td").Eq(1)
	text := util.CellText(cell.Text())
	birthday, err := time.Parse(japaneseDateLayout, text)
	if err != nil {
		return "", errors.NewScrapeError("birthday could not be parsed", "", "div.db_prof_area_02", err)
	}
	return birthday.Format("2006-01-02"), nil
}

// ParsePedigree walks table.blood_table. The rowspan of a cell gives its generation:
// 16 for the parents down to no rowspan for the fifth generation.
func ParsePedigree(doc *goquery.Document) ([]domain.Ancestor, error) {
	table, err := requireOne(doc.Selection, pedigreeTableSel, "pedigree table")
	if err != nil {
		return nil, err
	}

	selectors := make([]string, 0, len(generationSpans)+1)
	for _, span := range generationSpans {
		selectors = append(selectors, fmt.Sprintf(`td[rowspan="%s"]`, span))
	}
	selectors = append(selectors, "td:not([rowspan])")

	var ancestors []domain.Ancestor
	for gen, selector := range selectors {
		position := 0
		table.Find(selector).Each(func(_ int, td *goquery.Selection) {
			td.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				link := pedigreeLink.FindString(href)
				if link == "" {
					return
				}
				position++
				name, _, _ := strings.Cut(strings.TrimSpace(a.Text()), "\n")
				ancestors = append(ancestors, domain.Ancestor{
					Generation: gen + 1,
					Position:   position,
					Name:       strings.TrimSpace(name),
					HorseID:    link[strings.LastIndex(link, "/")+1:],
				})
			})
		})
	}
	return ancestors, nil
}

func (s *Scraper) HorseResults(ctx context.Context, horseID string) (*domain.HorseResults, error) {
	doc, err := s.fetcher.Document(ctx, fmt.Sprintf(constants.URLs.HorseDatabase, horseID), fetch.CharsetEUCJP)
	if err != nil {
		return nil, err
	}
	return ParseHorseResults(doc, horseID)
}

func (s *Scraper) HorseProfile(ctx context.Context, horseID string) (*domain.HorseProfile, error) {
	doc, err := s.fetcher.Document(ctx, fmt.Sprintf(constants.URLs.HorseDatabase, horseID), fetch.CharsetEUCJP)
	if err != nil {
		return nil, err
	}

	sex, err := ParseSex(doc)
	if err != nil {
		return nil, err
	}
	birthday, err := ParseBirthday(doc)
	if err != nil {
		return nil, err
	}
	return &domain.HorseProfile{HorseID: horseID, Sex: sex, Birthday: birthday}, nil
}

func (s *Scraper) Pedigree(ctx context.Context, horseID string) ([]domain.Ancestor, error) {
	doc, err := s.fetcher.Document(ctx, fmt.Sprintf(constants.URLs.HorsePedigree, horseID), fetch.CharsetEUCJP)
	if err != nil {
		return nil, err
	}
	return ParsePedigree(doc)
}
