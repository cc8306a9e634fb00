package netkeiba

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

func TestScraperDatabaseBundle(t *testing.T) {
	f := &fakeFetcher{
		pages:    map[string]string{"https://db.netkeiba.com/race/202405040911": databasePage},
		loggedIn: true,
	}
	s := NewScraper(f, nil)

	id, _ := domain.ParseRaceID("202405040911")
	db, err := s.Database(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, db.Rows, 2)
	require.Equal(t, "118", db.Rows[0].TimeIndex)
	require.Equal(t, "G1", db.Info.Grade)
	require.Len(t, db.Payouts, 5)
	require.Len(t, db.Corners, 2)
	require.Len(t, db.Laps, 1)
}

func TestScraperResult(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://race.netkeiba.com/race/result.html?race_id=202405040911&rf=race_list": resultPage,
	}}
	s := NewScraper(f, nil)

	id, _ := domain.ParseRaceID("202405040911")
	entries, err := s.Result(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "ドウデュース", entries[0].Name)

	other, _ := domain.ParseRaceID("202405040912")
	_, err = s.Result(context.Background(), other)
	require.Equal(t, 404, errors.StatusCode(err))
}

func TestScraperResolveByDate(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://race.netkeiba.com/top/calendar.html?year=2024&month=10":                     calendarPage,
		"https://race.sp.netkeiba.com/?pid=race_list&kaisai_date=20241027&jyo_cd=05": spRaceListPage,
	}}
	s := NewScraper(f, nil)
	tokyo, _ := domain.RacecourseByName("東京")

	date := time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC)
	id, err := s.ResolveByDate(context.Background(), date, tokyo, 11)
	require.NoError(t, err)
	require.Equal(t, "202405040911", id.String())

	_, err = s.ResolveByDate(context.Background(), date, tokyo, 12)
	require.True(t, errors.IsNotFound(err))

	_, err = s.ResolveByDate(context.Background(), date.AddDate(0, 0, 1), tokyo, 11)
	require.True(t, errors.IsNotFound(err))
}

func TestScraperRaceIDsByMonth(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"https://db.netkeiba.com/race/list/20230205": raceListPage,
		},
		fallback: `<html><body></body></html>`,
	}
	s := NewScraper(f, nil)

	ids, err := s.RaceIDsByMonth(context.Background(), 2023, time.February)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Len(t, f.requests, 28)
	require.Equal(t, "https://db.netkeiba.com/race/list/20230201", f.requests[0])
}

func TestScraperRaceIDsByMonthStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{fallback: `<html></html>`}
	s := NewScraper(f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.RaceIDsByMonth(ctx, 2024, time.March)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, f.requests)
}
