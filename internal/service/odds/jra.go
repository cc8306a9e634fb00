package odds

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/service/fetch"
)

const jraOddsList = "#odds_list"

// jraTabs is the position of each bet type in the second .nav bar. Everything after
// win is shifted by one on some pages, see ToggleIndexBase.
var jraTabs = map[domain.BetType]int{
	domain.BetWin:      0,
	domain.BetPlace:    0,
	domain.BetQuinella: 1,
	domain.BetWide:     2,
	domain.BetExacta:   3,
	domain.BetTrio:     4,
	domain.BetTrifecta: 5,
}

// JRAScraper navigates jra.go.jp from the top page to a race's odds.
type JRAScraper struct {
	open     fetch.BrowserFactory
	noOffset atomic.Bool
	logger   *zap.Logger
}

func NewJRAScraper(open fetch.BrowserFactory, logger *zap.Logger) *JRAScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JRAScraper{open: open, logger: logger}
}

func (s *JRAScraper) Name() string {
	return "jra"
}

// ToggleIndexBase flips the one-tab offset applied after the win tab.
func (s *JRAScraper) ToggleIndexBase() {
	for {
		old := s.noOffset.Load()
		if s.noOffset.CompareAndSwap(old, !old) {
			return
		}
	}
}

func (s *JRAScraper) indexBase() int {
	if s.noOffset.Load() {
		return 0
	}
	return 1
}

func (s *JRAScraper) Odds(ctx context.Context, id domain.RaceID, bet domain.BetType) ([]domain.OddsRow, error) {
	if _, ok := jraTabs[bet]; !ok {
		return nil, ErrUnsupportedBetType
	}

	var rows []domain.OddsRow
	err := withBrowser(ctx, s.open, func(b fetch.Browser) error {
		sess, err := s.visit(ctx, b, id)
		if err != nil {
			return err
		}
		rows, err = sess.scrape(ctx, bet)
		return err
	})
	return rows, err
}

func (s *JRAScraper) All(ctx context.Context, id domain.RaceID) (domain.OddsSet, error) {
	var set domain.OddsSet
	err := withBrowser(ctx, s.open, func(b fetch.Browser) error {
		sess, err := s.visit(ctx, b, id)
		if err != nil {
			return err
		}
		set, err = collect(ctx, sess)
		return err
	})
	return set, err
}

// visit opens the odds menu, picks the meeting by its "5回京都6日" label and then the
// race by number.
func (s *JRAScraper) visit(ctx context.Context, b fetch.Browser, id domain.RaceID) (*jraSession, error) {
	steps := []func() error{
		func() error { return b.Navigate(ctx, constants.URLs.JRATop) },
		func() error { return b.ClickNth(ctx, "#quick_menu li", 2) },
		func() error { return b.ClickText(ctx, ".link_list div", id.Label()) },
		func() error { return b.ClickNth(ctx, "tbody .race_num", id.Race-1) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("Opened JRA odds", zap.String("race_id", id.String()), zap.String("meeting", id.Label()))
	return &jraSession{browser: b, base: s.indexBase()}, nil
}

type jraSession struct {
	browser fetch.Browser
	base    int
}

func (j *jraSession) scrape(ctx context.Context, bet domain.BetType) ([]domain.OddsRow, error) {
	idx, ok := jraTabs[bet]
	if !ok {
		return nil, ErrUnsupportedBetType
	}
	if idx > 0 {
		idx += j.base
	}
	if err := j.browser.ClickNthIn(ctx, ".nav", 1, "li", idx); err != nil {
		return nil, err
	}

	tables, err := bodyTables(ctx, j.browser, jraOddsList, -1)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, nil
	}

	switch bet {
	case domain.BetWin:
		return ReshapeWin(tables[0], "単勝"), nil
	case domain.BetPlace:
		return ReshapeWin(tables[0], "複勝"), nil
	case domain.BetQuinella, domain.BetWide:
		return ReshapePairsByIndex(tables, false), nil
	case domain.BetExacta:
		return ReshapePairsByIndex(tables, true), nil
	case domain.BetTrio:
		return ReshapeTrioByCombination(tables), nil
	default:
		return ReshapeTrifectaByPermutation(tables), nil
	}
}
