package netkeiba

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
)

const (
	cornerSelector = `table[summary="コーナー通過順位"]`
	lapSelector    = `table[summary="ラップタイム"]`
)

func ParseCorners(doc *goquery.Document, raceID string) ([]domain.CornerPassing, error) {
	sel, err := requireOne(doc.Selection, cornerSelector, "corner passing table")
	if err != nil {
		return nil, err
	}

	table := fetch.ReadTable(sel)
	corners := make([]domain.CornerPassing, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) < 2 {
			continue
		}
		corners = append(corners, domain.CornerPassing{RaceID: raceID, Corner: row[0], Order: row[1]})
	}
	return corners, nil
}

// ParseLaps transposes the lap table: its rows are ラップ and ペース, its columns are
// the distance points (when the page labels them) followed by the values.
func ParseLaps(doc *goquery.Document, raceID string) ([]domain.Lap, error) {
	sel, err := requireOne(doc.Selection, lapSelector, "lap time table")
	if err != nil {
		return nil, err
	}

	table := fetch.ReadTable(sel)
	grid := table.Rows
	hasDistance := len(table.Header) > 0
	if hasDistance {
		grid = append([][]string{table.Header}, grid...)
	}

	columns := fetch.Transpose(grid)
	if len(columns) < 2 {
		return nil, notFound("lap time values", lapSelector)
	}

	laps := make([]domain.Lap, 0, len(columns)-1)
	for _, col := range columns[1:] {
		lap := domain.Lap{RaceID: raceID}
		values := col
		if hasDistance {
			lap.Distance = col[0]
			values = col[1:]
		}
		if len(values) > 0 {
			lap.Lap = values[0]
		}
		if len(values) > 1 {
			lap.Pace = values[1]
		}
		laps = append(laps, lap)
	}
	return laps, nil
}
