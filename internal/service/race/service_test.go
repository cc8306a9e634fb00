package race

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/internal/service/cache"
	"github.com/annko/keiba-bot-go/internal/service/odds"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

type fakeScraper struct {
	calls    map[string]int
	results  map[string][]domain.ResultEntry
	resolved domain.RaceID
	dateIDs  []string
}

func newFakeScraper() *fakeScraper {
	return &fakeScraper{calls: make(map[string]int), results: make(map[string][]domain.ResultEntry)}
}

func (f *fakeScraper) Result(_ context.Context, id domain.RaceID) ([]domain.ResultEntry, error) {
	f.calls["result"]++
	entries, ok := f.results[id.String()]
	if !ok {
		return nil, errors.NewNotFoundError("result table not found", "result")
	}
	return entries, nil
}

func (f *fakeScraper) Database(_ context.Context, id domain.RaceID) (*domain.RaceDatabase, error) {
	f.calls["database"]++
	return &domain.RaceDatabase{
		Info:    domain.RaceInfo{RaceID: id.String(), RaceName: "秋華賞"},
		Payouts: []domain.Payout{{RaceID: id.String(), BetType: "単勝", Combination: "7", Amount: 370}},
		Laps:    []domain.Lap{{RaceID: id.String(), Lap: "12.3"}},
	}, nil
}

func (f *fakeScraper) ResolveByDate(_ context.Context, _ time.Time, rc domain.Racecourse, raceNum int) (domain.RaceID, error) {
	f.calls["resolve"]++
	if f.resolved.IsZero() {
		return domain.RaceID{}, errors.NewNotFoundError("no meeting", "calendar")
	}
	return f.resolved, nil
}

func (f *fakeScraper) RaceIDsByDate(context.Context, time.Time) ([]string, error) {
	f.calls["ids"]++
	return f.dateIDs, nil
}

func (f *fakeScraper) RaceIDsByMonth(context.Context, int, time.Month) ([]string, error) {
	return f.dateIDs, nil
}

func (f *fakeScraper) RaceIDsByYear(context.Context, int) ([]string, error) {
	return f.dateIDs, nil
}

func (f *fakeScraper) HorseResults(_ context.Context, horseID string) (*domain.HorseResults, error) {
	return &domain.HorseResults{HorseID: horseID}, nil
}

func (f *fakeScraper) HorseProfile(_ context.Context, horseID string) (*domain.HorseProfile, error) {
	return &domain.HorseProfile{HorseID: horseID, Sex: "牝"}, nil
}

func (f *fakeScraper) Pedigree(context.Context, string) ([]domain.Ancestor, error) {
	return []domain.Ancestor{{Generation: 1, Position: 0, Name: "スワーヴリチャード"}}, nil
}

func (f *fakeScraper) Umabashira(_ context.Context, id domain.RaceID) ([]domain.UmabashiraRow, error) {
	return []domain.UmabashiraRow{{RaceID: id.String(), HorseNum: "1"}}, nil
}

func (f *fakeScraper) UmabashiraGrid(context.Context, domain.RaceID) (*domain.Grid, error) {
	return &domain.Grid{Header: []string{"1"}}, nil
}

type fakeSource struct {
	name  string
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Odds(_ context.Context, _ domain.RaceID, bet domain.BetType) ([]domain.OddsRow, error) {
	f.calls++
	if bet == domain.BetBracketQuinella {
		return nil, odds.ErrUnsupportedBetType
	}
	return []domain.OddsRow{{First: 7, Odds: 2.7, Raw: "2.7"}}, nil
}

func (f *fakeSource) All(context.Context, domain.RaceID) (domain.OddsSet, error) {
	f.calls++
	return domain.OddsSet{"TANSHO": {{First: 7, Odds: 2.7, Raw: "2.7"}}}, nil
}

func newTestService(t *testing.T) (*Service, *fakeScraper, *fakeSource, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	scraper := newFakeScraper()
	src := &fakeSource{name: "netkeiba"}
	m := metrics.New()
	svc := NewService(scraper, []odds.Source{src, &fakeSource{name: "jra"}}, cache.NewCacheServiceFromClient(client, nil), m, nil)
	svc.now = func() time.Time { return time.Date(2024, 10, 13, 15, 0, 0, 0, time.UTC) }
	return svc, scraper, src, m
}

func TestResultDefaultsYearAndCaches(t *testing.T) {
	svc, scraper, _, m := newTestService(t)
	scraper.results["202408050611"] = []domain.ResultEntry{{Rank: "1", Name: "チェルヴィニア"}}

	q := domain.RaceQuery{Racecourse: "京都", Meeting: 5, Day: 6, Race: 11}
	for i := 0; i < 2; i++ {
		entries, err := svc.Result(context.Background(), q)
		require.NoError(t, err)
		require.Equal(t, "チェルヴィニア", entries[0].Name)
	}
	require.Equal(t, 1, scraper.calls["result"])
	require.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("result", "hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("result", "miss")))
}

func TestResultErrors(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Result(context.Background(), domain.RaceQuery{Racecourse: "大井", Meeting: 1, Day: 1, Race: 1})
	require.True(t, errors.IsValidation(err))

	_, err = svc.Result(context.Background(), domain.RaceQuery{Racecourse: "京都", Meeting: 5, Day: 6, Race: 13})
	require.True(t, errors.IsValidation(err))

	_, err = svc.Result(context.Background(), domain.RaceQuery{Racecourse: "京都", Year: 2024, Meeting: 5, Day: 6, Race: 11})
	require.True(t, errors.IsNotFound(err))
}

func TestResultByDateGoesThroughCalendar(t *testing.T) {
	svc, scraper, _, _ := newTestService(t)
	id, err := domain.ParseRaceID("202408050611")
	require.NoError(t, err)
	scraper.resolved = id
	scraper.results[id.String()] = []domain.ResultEntry{{Rank: "1"}}

	date := time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)
	entries, err := svc.Result(context.Background(), domain.RaceQuery{Racecourse: "京都", Race: 11, Date: &date})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := svc.ResolveByDate(context.Background(), date, "京都", 11)
	require.NoError(t, err)
	require.Equal(t, id, got)
	require.Equal(t, 1, scraper.calls["resolve"], "calendar lookups are cached")
}

func TestResolveByDateValidates(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	date := time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)

	_, err := svc.ResolveByDate(context.Background(), date, "ロンシャン", 11)
	require.True(t, errors.IsValidation(err))
	_, err = svc.ResolveByDate(context.Background(), date, "京都", 0)
	require.True(t, errors.IsValidation(err))
	_, err = svc.ResolveByDate(context.Background(), date, "京都", 11)
	require.True(t, errors.IsNotFound(err))
}

func TestDatabaseProductsShareOneFetch(t *testing.T) {
	svc, scraper, _, _ := newTestService(t)
	id, _ := domain.ParseRaceID("202408050611")
	ctx := context.Background()

	info, err := svc.Info(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "秋華賞", info.RaceName)

	payouts, err := svc.Payouts(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 370, payouts[0].Amount)

	laps, err := svc.Laps(ctx, id)
	require.NoError(t, err)
	require.Len(t, laps, 1)

	corners, err := svc.Corners(ctx, id)
	require.NoError(t, err)
	require.Empty(t, corners)

	require.Equal(t, 1, scraper.calls["database"])
}

func TestOddsSources(t *testing.T) {
	svc, _, src, _ := newTestService(t)
	id, _ := domain.ParseRaceID("202408050611")
	ctx := context.Background()

	require.Equal(t, []string{"jra", "netkeiba"}, svc.OddsSources())

	rows, err := svc.Odds(ctx, id, domain.BetWin, "")
	require.NoError(t, err)
	require.Equal(t, 2.7, rows[0].Odds)
	_, err = svc.Odds(ctx, id, domain.BetWin, "netkeiba")
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	_, err = svc.Odds(ctx, id, domain.BetBracketQuinella, "")
	require.True(t, errors.IsValidation(err))
	require.ErrorIs(t, err, odds.ErrUnsupportedBetType)

	_, err = svc.Odds(ctx, id, domain.BetWin, "tab")
	require.True(t, errors.IsValidation(err))

	set, err := svc.AllOdds(ctx, id, "jra")
	require.NoError(t, err)
	require.Contains(t, set, "TANSHO")
}

func TestNoopCacheAlwaysLoads(t *testing.T) {
	scraper := newFakeScraper()
	svc := NewService(scraper, nil, nil, nil, nil)
	scraper.dateIDs = []string{"202408050601"}

	for i := 0; i < 2; i++ {
		ids, err := svc.RaceIDsByDate(context.Background(), time.Now())
		require.NoError(t, err)
		require.Equal(t, []string{"202408050601"}, ids)
	}
	require.Equal(t, 2, scraper.calls["ids"])
}

func TestHorseLookupsAcceptForeignIDs(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	profile, err := svc.HorseProfile(ctx, "000a0012bd")
	require.NoError(t, err)
	require.Equal(t, "000a0012bd", profile.HorseID)

	_, err = svc.Pedigree(ctx, "000a/0012")
	require.True(t, errors.IsValidation(err))
}
