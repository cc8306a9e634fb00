package race

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/internal/service/cache"
	"github.com/annko/keiba-bot-go/internal/service/odds"
	"github.com/annko/keiba-bot-go/internal/util"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

// Scraper is the page-level API of netkeiba.Scraper.
type Scraper interface {
	Result(ctx context.Context, id domain.RaceID) ([]domain.ResultEntry, error)
	Database(ctx context.Context, id domain.RaceID) (*domain.RaceDatabase, error)
	ResolveByDate(ctx context.Context, date time.Time, racecourse domain.Racecourse, raceNum int) (domain.RaceID, error)
	RaceIDsByDate(ctx context.Context, date time.Time) ([]string, error)
	RaceIDsByMonth(ctx context.Context, year int, month time.Month) ([]string, error)
	RaceIDsByYear(ctx context.Context, year int) ([]string, error)
	HorseResults(ctx context.Context, horseID string) (*domain.HorseResults, error)
	HorseProfile(ctx context.Context, horseID string) (*domain.HorseProfile, error)
	Pedigree(ctx context.Context, horseID string) ([]domain.Ancestor, error)
	Umabashira(ctx context.Context, id domain.RaceID) ([]domain.UmabashiraRow, error)
	UmabashiraGrid(ctx context.Context, id domain.RaceID) (*domain.Grid, error)
}

// DefaultOddsSource is used when a caller does not name one.
const DefaultOddsSource = "netkeiba"

// Service is the entry point shared by the REST API, chat commands and the CLI. Every
// read goes through the cache first.
type Service struct {
	scraper Scraper
	sources map[string]odds.Source
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(scraper Scraper, sources []odds.Source, c cache.Cache, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.Noop{}
	}
	bySource := make(map[string]odds.Source, len(sources))
	for _, src := range sources {
		bySource[src.Name()] = src
	}
	return &Service{
		scraper: scraper,
		sources: bySource,
		cache:   c,
		metrics: m,
		logger:  logger,
		now:     util.NowJST,
	}
}

// readThrough returns the cached value under key or loads, stores and returns it.
// Cache failures are logged and never fail the request.
func readThrough[T any](ctx context.Context, s *Service, product, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var cached T
	found, err := s.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		s.countLookup(product, "error")
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	case found:
		s.countLookup(product, "hit")
		return cached, nil
	default:
		s.countLookup(product, "miss")
	}

	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

func (s *Service) countLookup(product, result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(product, result).Inc()
	}
}

// Resolve turns a query into a race identifier. A query with a date goes through the
// calendar; otherwise meeting and day are used directly and a missing year means the
// current year in Japan.
func (s *Service) Resolve(ctx context.Context, q domain.RaceQuery) (domain.RaceID, error) {
	if q.HasDate() {
		return s.ResolveByDate(ctx, *q.Date, q.Racecourse, q.Race)
	}
	if q.Year == 0 {
		q.Year = s.now().Year()
	}
	return q.RaceID()
}

func (s *Service) ResolveByDate(ctx context.Context, date time.Time, racecourse string, raceNum int) (domain.RaceID, error) {
	rc, ok := domain.RacecourseByName(racecourse)
	if !ok {
		return domain.RaceID{}, errors.NewValidationError("unknown racecourse", "racecourse", racecourse)
	}
	if raceNum < 1 || raceNum > domain.MaxRaceNum {
		return domain.RaceID{}, errors.NewValidationError("race number out of range", "race", raceNum)
	}

	key := cache.Key("resolve", date.Format("20060102"), fmt.Sprintf("%02d", rc.Code), fmt.Sprintf("%02d", raceNum))
	return readThrough(ctx, s, "resolve", key, constants.CacheTTL.Calendar, func() (domain.RaceID, error) {
		return s.scraper.ResolveByDate(ctx, date, rc, raceNum)
	})
}

func (s *Service) Result(ctx context.Context, q domain.RaceQuery) ([]domain.ResultEntry, error) {
	id, err := s.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.ResultByID(ctx, id)
}

func (s *Service) ResultByID(ctx context.Context, id domain.RaceID) ([]domain.ResultEntry, error) {
	return readThrough(ctx, s, "result", cache.Key("result", id.String()), constants.CacheTTL.RaceResult,
		func() ([]domain.ResultEntry, error) {
			entries, err := s.scraper.Result(ctx, id)
			if err == nil {
				s.logger.Info("Fetched race result", zap.String("race_id", id.String()), zap.Int("entries", len(entries)))
			}
			return entries, err
		})
}

func (s *Service) Database(ctx context.Context, id domain.RaceID) (*domain.RaceDatabase, error) {
	return readThrough(ctx, s, "database", cache.Key("database", id.String()), constants.CacheTTL.RaceDatabase,
		func() (*domain.RaceDatabase, error) {
			return s.scraper.Database(ctx, id)
		})
}

func (s *Service) Info(ctx context.Context, id domain.RaceID) (*domain.RaceInfo, error) {
	db, err := s.Database(ctx, id)
	if err != nil {
		return nil, err
	}
	return &db.Info, nil
}

func (s *Service) Payouts(ctx context.Context, id domain.RaceID) ([]domain.Payout, error) {
	db, err := s.Database(ctx, id)
	if err != nil {
		return nil, err
	}
	return db.Payouts, nil
}

func (s *Service) Corners(ctx context.Context, id domain.RaceID) ([]domain.CornerPassing, error) {
	db, err := s.Database(ctx, id)
	if err != nil {
		return nil, err
	}
	return db.Corners, nil
}

func (s *Service) Laps(ctx context.Context, id domain.RaceID) ([]domain.Lap, error) {
	db, err := s.Database(ctx, id)
	if err != nil {
		return nil, err
	}
	return db.Laps, nil
}

func (s *Service) RaceIDsByDate(ctx context.Context, date time.Time) ([]string, error) {
	return readThrough(ctx, s, "race_ids", cache.Key("race_ids", date.Format("20060102")), constants.CacheTTL.RaceIDList,
		func() ([]string, error) {
			return s.scraper.RaceIDsByDate(ctx, date)
		})
}

func (s *Service) RaceIDsByMonth(ctx context.Context, year int, month time.Month) ([]string, error) {
	return readThrough(ctx, s, "race_ids", cache.Key("race_ids", fmt.Sprintf("%04d%02d", year, int(month))), constants.CacheTTL.RaceIDList,
		func() ([]string, error) {
			return s.scraper.RaceIDsByMonth(ctx, year, month)
		})
}

func (s *Service) RaceIDsByYear(ctx context.Context, year int) ([]string, error) {
	return readThrough(ctx, s, "race_ids", cache.Key("race_ids", fmt.Sprintf("%04d", year)), constants.CacheTTL.RaceIDList,
		func() ([]string, error) {
			return s.scraper.RaceIDsByYear(ctx, year)
		})
}

func (s *Service) HorseResults(ctx context.Context, horseID string) (*domain.HorseResults, error) {
	horseID, err := domain.ParseHorseID(horseID)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s, "horse", cache.Key("horse", "results", horseID), constants.CacheTTL.Horse,
		func() (*domain.HorseResults, error) {
			return s.scraper.HorseResults(ctx, horseID)
		})
}

func (s *Service) HorseProfile(ctx context.Context, horseID string) (*domain.HorseProfile, error) {
	horseID, err := domain.ParseHorseID(horseID)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s, "horse", cache.Key("horse", "profile", horseID), constants.CacheTTL.Horse,
		func() (*domain.HorseProfile, error) {
			return s.scraper.HorseProfile(ctx, horseID)
		})
}

func (s *Service) Pedigree(ctx context.Context, horseID string) ([]domain.Ancestor, error) {
	horseID, err := domain.ParseHorseID(horseID)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, s, "horse", cache.Key("horse", "pedigree", horseID), constants.CacheTTL.Horse,
		func() ([]domain.Ancestor, error) {
			return s.scraper.Pedigree(ctx, horseID)
		})
}

func (s *Service) Umabashira(ctx context.Context, id domain.RaceID) ([]domain.UmabashiraRow, error) {
	return readThrough(ctx, s, "umabashira", cache.Key("umabashira", id.String()), constants.CacheTTL.RaceDatabase,
		func() ([]domain.UmabashiraRow, error) {
			return s.scraper.Umabashira(ctx, id)
		})
}

func (s *Service) UmabashiraGrid(ctx context.Context, id domain.RaceID) (*domain.Grid, error) {
	return readThrough(ctx, s, "umabashira", cache.Key("umabashira", "grid", id.String()), constants.CacheTTL.RaceDatabase,
		func() (*domain.Grid, error) {
			return s.scraper.UmabashiraGrid(ctx, id)
		})
}

// OddsSources lists the configured source names.
func (s *Service) OddsSources() []string {
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) source(name string) (odds.Source, error) {
	if name == "" {
		name = DefaultOddsSource
	}
	src, ok := s.sources[name]
	if !ok {
		return nil, errors.NewValidationError("unknown odds source", "source", name)
	}
	return src, nil
}

func (s *Service) Odds(ctx context.Context, id domain.RaceID, bet domain.BetType, source string) ([]domain.OddsRow, error) {
	src, err := s.source(source)
	if err != nil {
		return nil, err
	}
	key := cache.Key("odds", src.Name(), id.String(), string(bet))
	return readThrough(ctx, s, "odds", key, constants.CacheTTL.LiveOdds, func() ([]domain.OddsRow, error) {
		rows, err := src.Odds(ctx, id, bet)
		if err != nil {
			return nil, wrapOddsError(err, src.Name(), bet)
		}
		return rows, nil
	})
}

func (s *Service) AllOdds(ctx context.Context, id domain.RaceID, source string) (domain.OddsSet, error) {
	src, err := s.source(source)
	if err != nil {
		return nil, err
	}
	key := cache.Key("odds", src.Name(), id.String(), "all")
	return readThrough(ctx, s, "odds", key, constants.CacheTTL.LiveOdds, func() (domain.OddsSet, error) {
		set, err := src.All(ctx, id)
		if err != nil {
			return nil, errors.NewServiceError("odds scrape failed", src.Name(), "all", err)
		}
		return set, nil
	})
}

func wrapOddsError(err error, source string, bet domain.BetType) error {
	if stderrors.Is(err, odds.ErrUnsupportedBetType) {
		ve := errors.NewValidationError(fmt.Sprintf("%s odds are not available from %s", bet.Label(), source), "bet_type", string(bet))
		ve.Cause = err
		return ve
	}
	return errors.NewServiceError("odds scrape failed", source, string(bet), err)
}
